package testspan

import (
	"errors"
	"sync"
	"testing"
)

func TestForestInsertRootAndChildren(t *testing.T) {
	f := newForest()

	if root, err := f.insert(1, 0); err != nil || root != 1 {
		t.Fatalf("Expected root 1, got %d (%v)", root, err)
	}
	if root, err := f.insert(2, 1); err != nil || root != 1 {
		t.Fatalf("Expected root 1 for child, got %d (%v)", root, err)
	}
	if root, err := f.insert(3, 2); err != nil || root != 1 {
		t.Fatalf("Expected root 1 for grandchild, got %d (%v)", root, err)
	}
	if root, err := f.insert(4, 1); err != nil || root != 1 {
		t.Fatalf("Expected root 1 for second child, got %d (%v)", root, err)
	}

	ex, err := f.extract(3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ex.loc.root != 1 {
		t.Errorf("Expected global root 1, got %d", ex.loc.root)
	}
	if len(ex.nodeToID) != 4 {
		t.Errorf("Expected 4 members, got %d", len(ex.nodeToID))
	}

	children := ex.dag.children(0)
	if len(children) != 2 {
		t.Fatalf("Expected 2 root children, got %d", len(children))
	}
	if ex.nodeToID[children[0]] != 2 || ex.nodeToID[children[1]] != 4 {
		t.Errorf("Expected children in creation order [2 4], got [%d %d]",
			ex.nodeToID[children[0]], ex.nodeToID[children[1]])
	}

	parent, ok := ex.dag.parent(ex.loc.node)
	if !ok || ex.nodeToID[parent] != 2 {
		t.Errorf("Expected span 3 to hang under span 2")
	}
	if _, ok := ex.dag.parent(0); ok {
		t.Error("Expected root to have no parent")
	}
}

func TestForestSeparateRoots(t *testing.T) {
	f := newForest()
	mustInsert(t, f, 1, 0)
	mustInsert(t, f, 2, 0)
	mustInsert(t, f, 3, 1)
	mustInsert(t, f, 4, 2)

	if f.roots() != 2 {
		t.Errorf("Expected 2 roots, got %d", f.roots())
	}

	ex, err := f.extract(2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, id := range ex.nodeToID {
		if id == 1 || id == 3 {
			t.Errorf("Span %d leaked into root 2", id)
		}
	}
}

func TestForestUnknownParent(t *testing.T) {
	f := newForest()
	_, err := f.insert(5, 42)
	if !errors.Is(err, ErrInconsistentState) {
		t.Errorf("Expected ErrInconsistentState, got %v", err)
	}
}

func TestForestDuplicateInsert(t *testing.T) {
	f := newForest()
	mustInsert(t, f, 1, 0)
	if _, err := f.insert(1, 0); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("Expected ErrInconsistentState, got %v", err)
	}
}

func TestForestExtractIsSnapshot(t *testing.T) {
	f := newForest()
	mustInsert(t, f, 1, 0)

	ex, err := f.extract(1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	mustInsert(t, f, 2, 1)

	if len(ex.dag.children(0)) != 0 {
		t.Error("Expected extracted dag to ignore later inserts")
	}
	if _, err := f.extract(99); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("Expected ErrInconsistentState for unknown span, got %v", err)
	}
}

func TestForestConcurrentInsert(t *testing.T) {
	f := newForest()
	mustInsert(t, f, 1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := f.insert(SpanID(n+2), 1); err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	ex, err := f.extract(1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n := len(ex.dag.children(0)); n != 50 {
		t.Errorf("Expected 50 children, got %d", n)
	}
}

func mustInsert(t *testing.T, f *forest, id, parent SpanID) {
	t.Helper()
	if _, err := f.insert(id, parent); err != nil {
		t.Fatalf("insert %d under %d: %v", id, parent, err)
	}
}
