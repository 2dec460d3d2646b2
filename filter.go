package testspan

import "strings"

// Filter decides which spans and log entries a query returns. It combines a
// default level with per-target overrides selected by longest prefix match.
// A Filter is immutable once built and safe for concurrent use.
type Filter struct {
	targets      map[string]Level
	defaultLevel Level
}

// NewFilter returns a filter enabling everything at most as verbose as level.
func NewFilter(level Level) *Filter {
	return &Filter{defaultLevel: level}
}

// WithTarget returns a copy of f where targets starting with prefix use level.
func (f *Filter) WithTarget(prefix string, level Level) *Filter {
	targets := make(map[string]Level, len(f.targets)+1)
	for k, v := range f.targets {
		targets[k] = v
	}
	targets[prefix] = level
	return &Filter{defaultLevel: f.defaultLevel, targets: targets}
}

// DefaultLevel returns the level used when no target override matches.
func (f *Filter) DefaultLevel() Level {
	return f.defaultLevel
}

// LevelFor returns the level of the longest configured prefix of target,
// or the default level when none matches.
func (f *Filter) LevelFor(target string) Level {
	level := f.defaultLevel
	longest := -1
	for prefix, l := range f.targets {
		if len(prefix) > longest && strings.HasPrefix(target, prefix) {
			longest = len(prefix)
			level = l
		}
	}
	return level
}

// Enabled reports whether meta passes the filter.
func (f *Filter) Enabled(meta Metadata) bool {
	return f.LevelFor(meta.Target).Enables(meta.Level)
}
