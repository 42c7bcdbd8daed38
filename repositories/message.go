//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	// GetMessages returns messages of a room in ascending timestamp order,
	// starting strictly after the given cursor, capped at first when set.
	// The returned cursor resumes pagination after the last row; it is nil
	// when no rows matched.
	GetMessages(room domain.RoomID, after *string, first *int) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the storage encoding of a message. The timestamp lives in
// the key, but is kept in the value too so rows decode standalone.
type diskMessage struct {
	ID      uuid.UUID     `json:"id"`
	Room    domain.RoomID `json:"room"`
	Sender  string        `json:"sender"`
	Content string        `json:"content"`
	Lang    string        `json:"lang,omitempty"`
	At      int64         `json:"at"`
}

// StoreMessage persists a message under "msg:{room}:{timestamp}:{uuid}".
// The 19-digit zero-padded nanosecond timestamp makes lexicographic key
// order equal chronological order, so a forward prefix scan pages in
// ascending time. The UUID suffix disambiguates equal timestamps.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := messageKey(message.RoomID, message.CreatedAt, message.ID)
	value, err := json.Marshal(diskMessage{
		ID:      message.ID,
		Room:    message.RoomID,
		Sender:  message.SenderID,
		Content: message.Content,
		Lang:    message.Lang,
		At:      message.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

func (m MessageRepository) GetMessages(room domain.RoomID, after *string,
	first *int) ([]domain.Message, *string, error) {
	var rows [][]byte
	var lastCursor string

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%d:", room)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := prefix
		if after != nil {
			seekKey = append([]byte(prefixStr), []byte(*after)...)
		}
		it.Seek(seekKey)

		// The cursor names the last row of the previous page: skip it so
		// pages are disjoint.
		if after != nil && it.ValidForPrefix(prefix) &&
			string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if first != nil && len(rows) == *first {
				break
			}
			item := it.Item()
			lastCursor = string(item.Key()[len(prefixStr):])
			if err := item.Value(func(value []byte) error {
				rows = append(rows, append([]byte(nil), value...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		var dm diskMessage
		if err = json.Unmarshal(row, &dm); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(dm))
	}
	return messages, lo.ToPtr(lastCursor), nil
}

func messageKey(room domain.RoomID, at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("msg:%d:%s", room, Cursor(at, id))
}

// Cursor renders the opaque pagination token of a message: the key
// remainder after the room prefix. Cursor order matches ascending
// timestamp order.
func Cursor(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%019d:%s", at.UnixNano(), id)
}

// CursorTime recovers the timestamp a cursor was derived from.
func CursorTime(cursor string) (time.Time, error) {
	nanos := cursor
	if idx := strings.IndexByte(cursor, ':'); idx >= 0 {
		nanos = cursor[:idx]
	}
	var n int64
	if _, err := fmt.Sscanf(nanos, "%d", &n); err != nil {
		return time.Time{}, fmt.Errorf("malformed cursor %q: %w", cursor, err)
	}
	return time.Unix(0, n).UTC(), nil
}

func toMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:        dm.ID,
		RoomID:    dm.Room,
		SenderID:  dm.Sender,
		Content:   dm.Content,
		Lang:      dm.Lang,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}
}
