package service

// Broadcaster pushes real-time game events to connected observers.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastEvent(eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for tests or when the
// status server is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastEvent(string, any) {}
