package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// EntityEvent is broadcast when a persona, fragment or composition is
// created or deleted.
type EntityEvent struct {
	Kind string `json:"kind"`
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// ActivationEvent is broadcast when a composition becomes active.
type ActivationEvent struct {
	CompositionID int       `json:"composition_id"`
	Name          string    `json:"name"`
	Prompt        string    `json:"prompt"`
	PartCount     int       `json:"part_count"`
	CharCount     int       `json:"char_count"`
	ActivatedAt   time.Time `json:"activated_at"`
}

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
