package domain

// PostMessageCommand carries a message creation intent into the mutation
// service. Sender and room are validated against the store before insert.
type PostMessageCommand struct {
	RoomID   RoomID
	SenderID string
	Content  string
}

// GetMessagesCommand parameterizes a paginated room read. First caps the
// page size; After resumes from a previously issued cursor. Both optional.
type GetMessagesCommand struct {
	RoomID RoomID
	First  *int
	After  *string
}
