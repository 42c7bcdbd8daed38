package search

import (
	"context"
	"fmt"
	"log/slog"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
)

// Hit is a search result: the matching message and its stored content.
type Hit struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
}

// Indexer is the write side of the message index. Indexing is best
// effort: a failed index never fails the mutation that triggered it.
type Indexer interface {
	Index(message domain.Message) error
}

// MessageIndex maintains a Bluge full-text index over message content,
// scoped per room via a keyword field.
type MessageIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func OpenMessageIndex(path string, log *slog.Logger) (*MessageIndex, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("opening message index: %w", err)
	}
	return &MessageIndex{writer: writer, log: log}, nil
}

func (i *MessageIndex) Close() error {
	return i.writer.Close()
}

func (i *MessageIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("room", fmt.Sprintf("%d", message.RoomID))).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		AddField(bluge.NewDateTimeField("at", message.CreatedAt))
	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages of the room matching terms, best
// score first.
func (i *MessageIndex) Search(ctx context.Context, room domain.RoomID,
	terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	content := bluge.NewMatchQuery(terms)
	content.SetField("content")
	roomFilter := bluge.NewTermQuery(fmt.Sprintf("%d", room))
	roomFilter.SetField("room")
	query := bluge.NewBooleanQuery().AddMust(content).AddMust(roomFilter)

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit Hit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "sender":
				hit.Sender = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}
