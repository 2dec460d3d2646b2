package testspan

import (
	"fmt"
	"time"
)

// Span is a node of the span tree returned by a report query.
type Span struct {
	StartTime time.Time
	EndTime   time.Time
	Name      string
	Record    RecordWithMetadata
	Children  []Child
	ID        SpanID
}

// ChildKey identifies a child span. Index is the child's node index in its
// DAG, so same-named siblings never collapse into one entry.
type ChildKey struct {
	Name  string
	Index NodeIndex
}

// Child is one entry of a span's ordered children.
type Child struct {
	Span *Span
	Key  ChildKey
}

// Child returns the direct children named name, in order.
func (s *Span) Child(name string) []*Span {
	var out []*Span
	for _, c := range s.Children {
		if c.Key.Name == name {
			out = append(out, c.Span)
		}
	}
	return out
}

// Find follows path through the first child matching each name.
func (s *Span) Find(path ...string) (*Span, bool) {
	current := s
	for _, name := range path {
		matches := current.Child(name)
		if len(matches) == 0 {
			return nil, false
		}
		current = matches[0]
	}
	return current, true
}

// Fields returns the span's own entries as Records.
func (s *Span) Fields() Records {
	return Records(s.Record.Entries)
}

// Records is an ordered list of recorded fields and log entries.
type Records []Record

// ContainsMessage reports whether a log message equal to msg was recorded.
func (r Records) ContainsMessage(msg string) bool {
	for _, rec := range r {
		if rec.Name == MessageField && (rec.Value.Kind() == KindDebug || rec.Value.Kind() == KindString) && rec.Value.Text() == msg {
			return true
		}
	}
	return false
}

// ContainsValue reports whether an entry name=value was recorded.
func (r Records) ContainsValue(name string, value Value) bool {
	for _, rec := range r {
		if rec.Name == name && rec.Value.Equal(value) {
			return true
		}
	}
	return false
}

// Values returns every value recorded under name, in order.
func (r Records) Values(name string) []Value {
	var out []Value
	for _, rec := range r {
		if rec.Name == name {
			out = append(out, rec.Value)
		}
	}
	return out
}

// Report is a read-only snapshot of the DAG containing a span, taken when the
// report is built. Later captures are not visible through it.
type Report struct {
	dag       *dag
	spans     map[SpanID]*spanRecorder
	logs      *logPartition
	nodeToID  map[NodeIndex]SpanID
	rootIndex NodeIndex
	rootID    SpanID
}

// Report builds a report rooted at span id. The span may be a global root or
// any span below one; the report then covers id's subtree.
func (s *Sink) Report(id SpanID) *Report {
	ex, err := s.forest.extract(id)
	if err != nil {
		s.fatal(err)
	}

	return &Report{
		dag:       ex.dag,
		spans:     s.spans.snapshot(ex.nodeToID),
		logs:      s.logs.forSpans(ex.nodeToID),
		nodeToID:  ex.nodeToID,
		rootIndex: ex.loc.node,
		rootID:    id,
	}
}

// Spans rebuilds the filtered span tree. The root is always present. Spans the
// filter disables are elided and their children spliced into the parent.
func (r *Report) Spans(filter *Filter) *Span {
	rec, ok := r.spans[r.rootID]
	if !ok {
		return &Span{Name: "root"}
	}

	contents := rec.contents(filter)
	contents.Append(r.logs.recordsFor(r.rootID, filter))

	root := r.newSpan(r.rootID, rec, contents)
	root.Children = r.childSpans(r.rootIndex, filter)
	return root
}

// Logs returns the root's entries followed by a pre-order, creation ordered
// traversal of every descendant's entries. Span filtering does not apply here:
// entries of a disabled span's log events still appear if they pass.
func (r *Report) Logs(filter *Filter) Records {
	rec, ok := r.spans[r.rootID]
	if !ok {
		return Records{}
	}

	contents := rec.contents(filter)
	contents.Append(r.logs.recordsFor(r.rootID, filter))

	records := append(Records{}, contents.Entries...)
	return r.appendLogs(records, r.rootIndex, filter)
}

func (r *Report) appendLogs(records Records, current NodeIndex, filter *Filter) Records {
	for _, child := range r.dag.children(current) {
		id, rec := r.resolve(child)

		contents := rec.contents(filter)
		contents.Append(r.logs.recordsFor(id, filter))
		records = append(records, contents.Entries...)

		records = r.appendLogs(records, child, filter)
	}
	return records
}

func (r *Report) childSpans(current NodeIndex, filter *Filter) []Child {
	var children []Child
	for _, child := range r.dag.children(current) {
		id, rec := r.resolve(child)

		contents := rec.contents(filter)
		contents.Append(r.logs.recordsFor(id, filter))

		span := r.newSpan(id, rec, contents)
		span.Children = r.childSpans(child, filter)

		if !filter.Enabled(rec.metadata) {
			// Disabled spans are transparent: keep walking for enabled descendants.
			children = append(children, span.Children...)
			continue
		}
		children = append(children, Child{
			Key:  ChildKey{Name: span.Name, Index: child},
			Span: span,
		})
	}
	return children
}

func (r *Report) newSpan(id SpanID, rec *spanRecorder, contents RecordWithMetadata) *Span {
	return &Span{
		ID:        id,
		Name:      rec.metadata.DisplayName(),
		Record:    contents,
		StartTime: rec.start,
		EndTime:   rec.end,
	}
}

// resolve maps a graph node to its span. The graph and the recorders are
// captured together, so a miss is a consistency violation.
func (r *Report) resolve(n NodeIndex) (SpanID, *spanRecorder) {
	id, ok := r.nodeToID[n]
	if !ok {
		panic(fmt.Errorf("%w: couldn't find span id for node %d", ErrInconsistentState, n))
	}
	rec, ok := r.spans[id]
	if !ok {
		panic(fmt.Errorf("%w: no recorder for span %d", ErrInconsistentState, id))
	}
	return id, rec
}
