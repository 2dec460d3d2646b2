package testspan

import "time"

// ClosedSpan describes a span at the moment it was closed.
type ClosedSpan struct {
	StartTime time.Time
	EndTime   time.Time
	Metadata  Metadata
	Duration  time.Duration
	ID        SpanID
	Root      SpanID
}

// SpanCloseHandler is called when a span closes.
type SpanCloseHandler func(span ClosedSpan)

type handlerEntry struct {
	handler SpanCloseHandler
	id      uint64
}

// OnSpanClose registers a handler called synchronously on every span close.
// Returns an id for RemoveHandler, or zero for a nil handler.
func (s *Sink) OnSpanClose(handler SpanCloseHandler) uint64 {
	if handler == nil {
		return 0
	}

	id := s.nextHandler.Add(1)

	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()

	s.handlers = append(s.handlers, handlerEntry{
		id:      id,
		handler: handler,
	})

	return id
}

// RemoveHandler removes a handler by ID.
func (s *Sink) RemoveHandler(id uint64) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()

	// Preserve order
	for i, h := range s.handlers {
		if h.id == id {
			copy(s.handlers[i:], s.handlers[i+1:])
			s.handlers = s.handlers[:len(s.handlers)-1]
			return
		}
	}
}

// HasHandlers reports whether any close handler is registered.
func (s *Sink) HasHandlers() bool {
	s.handlersLock.RLock()
	defer s.handlersLock.RUnlock()
	return len(s.handlers) > 0
}

// SetPanicHook sets a function to be called when a handler panics.
func (s *Sink) SetPanicHook(hook func(handlerID uint64, r interface{})) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.panicHook = hook
}

// executeHandlers calls all registered handlers with the closed span.
// The handler list is copied so handlers may register or remove handlers.
func (s *Sink) executeHandlers(span ClosedSpan) {
	s.handlersLock.RLock()
	if len(s.handlers) == 0 {
		s.handlersLock.RUnlock()
		return
	}

	handlers := make([]handlerEntry, len(s.handlers))
	copy(handlers, s.handlers)
	hook := s.panicHook
	s.handlersLock.RUnlock()

	for _, h := range handlers {
		s.safeCall(h, span, hook)
	}
}

func (s *Sink) safeCall(entry handlerEntry, span ClosedSpan, hook func(uint64, interface{})) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Sugar().Warnw("span close handler panicked", "handler_id", entry.id, "panic", r)
			if hook != nil {
				hook(entry.id, r)
			}
		}
	}()
	entry.handler(span)
}
