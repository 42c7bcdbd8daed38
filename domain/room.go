package domain

// RoomID identifies a chat room. Room names are unique.
type RoomID int

type Room struct {
	ID   RoomID `json:"id"`
	Name string `json:"name"`
}
