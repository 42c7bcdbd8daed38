package domain

// MessageEdge pairs a message with the cursor that resumes pagination
// right after it.
type MessageEdge struct {
	Cursor string  `json:"cursor"`
	Node   Message `json:"node"`
}

type PageInfo struct {
	EndCursor *string `json:"endCursor"`
	// HasNextPage is a heuristic: true iff the page was filled to the
	// requested size. A room whose message count is an exact multiple of
	// the page size yields one final empty page.
	HasNextPage bool `json:"hasNextPage"`
}

// MessagePage is the connection shape served by messagesByRoom.
type MessagePage struct {
	Edges    []MessageEdge `json:"edges"`
	PageInfo PageInfo      `json:"pageInfo"`
}
