package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message. CreatedAt drives ordering and
// pagination cursors; it is monotonic per insertion but not unique.
type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomID    RoomID    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Lang      string    `json:"lang,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
