package testspan

// TelemetryForRoot returns both the span tree and the logs rooted at root.
func (s *Sink) TelemetryForRoot(root SpanID, filter *Filter) (*Span, Records) {
	report := s.Report(root)
	return report.Spans(filter), report.Logs(filter)
}

// SpansForRoot returns the filtered span tree rooted at root.
func (s *Sink) SpansForRoot(root SpanID, filter *Filter) *Span {
	return s.Report(root).Spans(filter)
}

// LogsForRoot returns the filtered entries recorded under root.
//
// Log events emitted on goroutines that did not receive the root's context
// are not attributed to it; use AllLogs for those.
func (s *Sink) LogsForRoot(root SpanID, filter *Filter) Records {
	return s.Report(root).Logs(filter)
}

// AllLogs returns every captured log entry the filter approves, regardless
// of the span it was emitted in.
func (s *Sink) AllLogs(filter *Filter) Records {
	return Records(s.logs.all(filter))
}
