// Package snapshot renders testspan results as YAML for golden-file tests.
//
// A span renders as:
//
//	name: tests::root
//	record:
//	- number: 1
//	children:
//	  tests::do_stuff:
//	    name: tests::do_stuff
//
// Records keep their capture order. Siblings sharing a name are emitted as
// repeated keys unless Grouped is set.
package snapshot

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/zoobzio/testspan"
)

type options struct {
	grouped bool
}

// Option configures rendering.
type Option func(*options)

// Grouped collects same-named siblings into one key holding a sequence.
func Grouped() Option {
	return func(o *options) { o.grouped = true }
}

// Span renders a span tree.
func Span(span *testspan.Span, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	out, err := yaml.Marshal(o.span(span))
	if err != nil {
		return nil, fmt.Errorf("snapshot: render span %s: %w", span.Name, err)
	}
	return out, nil
}

// Records renders a flat record list, such as the result of a log query.
func Records(records testspan.Records) ([]byte, error) {
	out, err := yaml.Marshal(recordList(records))
	if err != nil {
		return nil, fmt.Errorf("snapshot: render records: %w", err)
	}
	return out, nil
}

func (o options) span(span *testspan.Span) yaml.MapSlice {
	out := yaml.MapSlice{{Key: "name", Value: span.Name}}
	if len(span.Record.Entries) > 0 {
		out = append(out, yaml.MapItem{Key: "record", Value: recordList(span.Record.Entries)})
	}
	if len(span.Children) > 0 {
		out = append(out, yaml.MapItem{Key: "children", Value: o.children(span.Children)})
	}
	return out
}

func (o options) children(children []testspan.Child) yaml.MapSlice {
	out := make(yaml.MapSlice, 0, len(children))
	if !o.grouped {
		for _, c := range children {
			out = append(out, yaml.MapItem{Key: c.Key.Name, Value: o.span(c.Span)})
		}
		return out
	}

	// Groups appear where their first member did.
	position := make(map[string]int)
	for _, c := range children {
		i, ok := position[c.Key.Name]
		if !ok {
			position[c.Key.Name] = len(out)
			out = append(out, yaml.MapItem{Key: c.Key.Name, Value: []yaml.MapSlice{o.span(c.Span)}})
			continue
		}
		out[i].Value = append(out[i].Value.([]yaml.MapSlice), o.span(c.Span))
	}
	return out
}

func recordList(records []testspan.Record) []yaml.MapSlice {
	out := make([]yaml.MapSlice, 0, len(records))
	for _, r := range records {
		out = append(out, yaml.MapSlice{{Key: r.Name, Value: r.Value.Interface()}})
	}
	return out
}
