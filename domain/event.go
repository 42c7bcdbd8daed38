package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageCreated is the payload published on the notification bus after a
// message commit. It is the structured form of what subscribers receive.
type MessageCreated struct {
	ID       uuid.UUID `json:"id"`
	RoomID   RoomID    `json:"room_id"`
	SenderID string    `json:"sender_id"`
	Content  string    `json:"content"`
	Lang     string    `json:"lang,omitempty"`
	At       time.Time `json:"at"`
}

// TopicForRoom names the bus channel carrying a room's message stream.
func TopicForRoom(id RoomID) string {
	return fmt.Sprintf("room:%d", id)
}
