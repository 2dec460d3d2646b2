package testspan

// Accumulator stores recorded fields keyed by the metadata that produced them.
// Keys keep their first insertion order. Entries under a key are append-only.
// Accumulator is not safe for concurrent use; owners guard it.
type Accumulator struct {
	entries map[Metadata][]Record
	keys    []Metadata
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{entries: make(map[Metadata][]Record)}
}

// Record appends one field under meta.
func (a *Accumulator) Record(meta Metadata, name string, value Value) {
	a.append(meta, Record{Name: name, Value: value})
}

// Merge appends one accumulation pass under meta.
func (a *Accumulator) Merge(meta Metadata, set *AttributeSet) {
	a.append(meta, set.Records()...)
}

func (a *Accumulator) append(meta Metadata, records ...Record) {
	existing, ok := a.entries[meta]
	if !ok {
		a.keys = append(a.keys, meta)
	}
	a.entries[meta] = append(existing, records...)
}

// Contents returns the entries of every key the filter approves, in key order.
func (a *Accumulator) Contents(filter *Filter) []Record {
	return a.collect(func(meta Metadata) bool { return filter.Enabled(meta) })
}

// Keys returns the accumulated metadata keys in insertion order.
func (a *Accumulator) Keys() []Metadata {
	out := make([]Metadata, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of keys.
func (a *Accumulator) Len() int {
	return len(a.keys)
}

func (a *Accumulator) collect(keep func(Metadata) bool) []Record {
	var out []Record
	for _, meta := range a.keys {
		if keep(meta) {
			out = append(out, a.entries[meta]...)
		}
	}
	return out
}

// subset clones the keys accepted by keep.
func (a *Accumulator) subset(keep func(Metadata) bool) *Accumulator {
	out := NewAccumulator()
	for _, meta := range a.keys {
		if !keep(meta) {
			continue
		}
		records := a.entries[meta]
		cloned := make([]Record, len(records))
		copy(cloned, records)
		out.keys = append(out.keys, meta)
		out.entries[meta] = cloned
	}
	return out
}

// Clone returns a deep copy of the accumulator.
func (a *Accumulator) Clone() *Accumulator {
	return a.subset(func(Metadata) bool { return true })
}
