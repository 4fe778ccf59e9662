package logkey

// Keys used for structured logging across the service so log lines
// stay grep-able regardless of which handler emitted them.
const (
	TraceID     = "TRACE ID"
	ERROR       = "ERROR"
	OrderNumber = "ORDER NUMBER"
	SessionID   = "SESSION ID"
)
