package testspan

// SpanID identifies a span instance for the lifetime of the process.
// The zero SpanID means "no span".
type SpanID uint64

// MessageField is the field name under which log messages are recorded.
const MessageField = "message"

// Metadata describes the callsite that produced a span or a log event.
// Metadata is comparable and is used as a composite key by accumulators.
type Metadata struct {
	Name   string
	Target string
	Level  Level
	// SpanID is the span a log event occurred inside, zero when there was none.
	// Span metadata leaves it unset.
	SpanID SpanID
}

// DisplayName returns "target::name".
func (m Metadata) DisplayName() string {
	return m.Target + "::" + m.Name
}

// WithSpanID returns a copy of m attributed to span id.
func (m Metadata) WithSpanID(id SpanID) Metadata {
	m.SpanID = id
	return m
}

// Record is a single recorded field.
type Record struct {
	Name  string
	Value Value
}

// Field is shorthand for Record{Name: name, Value: Any(value)}.
func Field(name string, value any) Record {
	return Record{Name: name, Value: Any(value)}
}

// Message returns a message record.
func Message(msg string) Record {
	return Record{Name: MessageField, Value: Debug(msg)}
}

// AttributeSet is an insertion-ordered set of named values. Merging a name
// that is already present replaces its value in place.
type AttributeSet struct {
	index   map[string]int
	entries []Record
}

// NewAttributeSet builds a set from records, resolving duplicate names.
func NewAttributeSet(records ...Record) *AttributeSet {
	set := &AttributeSet{}
	for _, r := range records {
		set.Merge(r.Name, r.Value)
	}
	return set
}

// Merge adds name=value to the set. The last write for a name wins.
func (a *AttributeSet) Merge(name string, value Value) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	if i, ok := a.index[name]; ok {
		a.entries[i].Value = value
		return
	}
	a.index[name] = len(a.entries)
	a.entries = append(a.entries, Record{Name: name, Value: value})
}

// Get returns the value recorded for name.
func (a *AttributeSet) Get(name string) (Value, bool) {
	if a == nil || a.index == nil {
		return Value{}, false
	}
	i, ok := a.index[name]
	if !ok {
		return Value{}, false
	}
	return a.entries[i].Value, true
}

// Len returns the number of distinct names in the set.
func (a *AttributeSet) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Records returns a copy of the entries in insertion order.
func (a *AttributeSet) Records() []Record {
	if a == nil || len(a.entries) == 0 {
		return nil
	}
	out := make([]Record, len(a.entries))
	copy(out, a.entries)
	return out
}

// RecordWithMetadata pairs recorded entries with the metadata that produced them.
type RecordWithMetadata struct {
	Metadata Metadata
	Entries  []Record
}

// Append adds records after the existing entries.
func (r *RecordWithMetadata) Append(records []Record) {
	r.Entries = append(r.Entries, records...)
}
