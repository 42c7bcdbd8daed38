package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Index_And_Search(t *testing.T) {
	req := require.New(t)
	index, err := OpenMessageIndex(t.TempDir(), slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	now := time.Now().UTC()
	wanted := domain.Message{
		ID: uuid.New(), RoomID: 1, SenderID: "alice",
		Content: "the deployment finished", CreatedAt: now,
	}
	req.NoError(index.Index(wanted))
	req.NoError(index.Index(domain.Message{
		ID: uuid.New(), RoomID: 1, SenderID: "bob",
		Content: "lunch anyone", CreatedAt: now,
	}))
	// Same words, different room: must not surface.
	req.NoError(index.Index(domain.Message{
		ID: uuid.New(), RoomID: 2, SenderID: "clara",
		Content: "deployment talk elsewhere", CreatedAt: now,
	}))

	hits, err := index.Search(context.Background(), 1, "deployment", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(wanted.ID.String(), hits[0].MessageID)
	req.Equal("the deployment finished", hits[0].Content)
	req.Equal("alice", hits[0].Sender)
}

func Test_Search_No_Match(t *testing.T) {
	req := require.New(t)
	index, err := OpenMessageIndex(t.TempDir(), slog.Default())
	req.NoError(err)
	t.Cleanup(func() { _ = index.Close() })

	req.NoError(index.Index(domain.Message{
		ID: uuid.New(), RoomID: 1, SenderID: "alice",
		Content: "hello world", CreatedAt: time.Now().UTC(),
	}))

	hits, err := index.Search(context.Background(), 1, "nonexistent", 10)
	req.NoError(err)
	req.Empty(hits)
}
