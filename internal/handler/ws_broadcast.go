package handler

// BroadcastEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastEvent(eventType string, data any) {
	h.Broadcast(WSEvent{Type: eventType, Data: data})
}
