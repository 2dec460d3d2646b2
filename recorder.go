package testspan

import (
	"sync"
	"time"
)

// spanRecorder holds the fields recorded on one span.
type spanRecorder struct {
	start    time.Time
	end      time.Time
	acc      *Accumulator
	metadata Metadata
	closed   bool
}

func newSpanRecorder(meta Metadata, start time.Time) *spanRecorder {
	return &spanRecorder{
		metadata: meta,
		start:    start,
		acc:      NewAccumulator(),
	}
}

// contents returns the span's fields if the filter approves its metadata.
func (r *spanRecorder) contents(filter *Filter) RecordWithMetadata {
	return RecordWithMetadata{
		Metadata: r.metadata,
		Entries:  r.acc.Contents(filter),
	}
}

func (r *spanRecorder) clone() *spanRecorder {
	c := *r
	c.acc = r.acc.Clone()
	return &c
}

// spanStore is the span id -> recorder table. Safe for concurrent use.
type spanStore struct {
	spans map[SpanID]*spanRecorder
	mu    sync.Mutex
}

func newSpanStore() *spanStore {
	return &spanStore{spans: make(map[SpanID]*spanRecorder)}
}

func (s *spanStore) put(id SpanID, r *spanRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans[id] = r
}

// record appends one field to the span's own accumulator.
func (s *spanStore) record(id SpanID, name string, value Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.spans[id]
	if !ok {
		return false
	}
	r.acc.Record(r.metadata, name, value)
	return true
}

// close stamps the end time once and returns a copy of the recorder.
func (s *spanStore) close(id SpanID, at time.Time) (spanRecorder, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.spans[id]
	if !ok {
		return spanRecorder{}, false, false
	}
	first := !r.closed
	if first {
		r.closed = true
		r.end = at
	}
	return *r, first, true
}

// snapshot clones the recorders of the given ids.
func (s *spanStore) snapshot(ids map[NodeIndex]SpanID) map[SpanID]*spanRecorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[SpanID]*spanRecorder, len(ids))
	for _, id := range ids {
		if r, ok := s.spans[id]; ok {
			out[id] = r.clone()
		}
	}
	return out
}

func (s *spanStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spans)
}

func (s *spanStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spans = make(map[SpanID]*spanRecorder)
}

// logsRecorder is the process-wide log accumulator. Log entries are
// partitioned by span id at query time, never at capture time.
type logsRecorder struct {
	acc *Accumulator
	mu  sync.Mutex
}

func newLogsRecorder() *logsRecorder {
	return &logsRecorder{acc: NewAccumulator()}
}

func (l *logsRecorder) event(meta Metadata, set *AttributeSet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acc.Merge(meta, set)
}

// forSpans clones the entries attributed to any of the given spans.
func (l *logsRecorder) forSpans(ids map[NodeIndex]SpanID) *logPartition {
	members := make(map[SpanID]struct{}, len(ids))
	for _, id := range ids {
		members[id] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return &logPartition{acc: l.acc.subset(func(meta Metadata) bool {
		if meta.SpanID == 0 {
			return false
		}
		_, ok := members[meta.SpanID]
		return ok
	})}
}

func (l *logsRecorder) all(filter *Filter) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acc.Contents(filter)
}

func (l *logsRecorder) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acc = NewAccumulator()
}

// logPartition is an immutable slice of the global logs owned by a Report.
type logPartition struct {
	acc *Accumulator
}

func (p *logPartition) recordsFor(id SpanID, filter *Filter) []Record {
	return p.acc.collect(func(meta Metadata) bool {
		return meta.SpanID == id && filter.Enabled(meta)
	})
}
