//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(name string) (domain.Room, error)
	GetRoom(id domain.RoomID) (domain.Room, error)
	ListRooms() ([]domain.Room, error)
}

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewRoomRepository(db *badger.DB) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte("seq:room"), 64)
	if err != nil {
		return nil, err
	}
	return &RoomRepository{db: db, seq: seq}, nil
}

// Close releases the unreturned tail of the room ID sequence.
func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

// CreateRoom allocates the next room ID and persists the room under
// "room:{id}" with a "roomname:{name}" index enforcing name uniqueness
// inside the transaction. Sequence gaps on lost races are acceptable.
func (r *RoomRepository) CreateRoom(name string) (domain.Room, error) {
	next, err := r.seq.Next()
	if err != nil {
		return domain.Room{}, err
	}
	room := domain.Room{ID: domain.RoomID(next + 1), Name: name}
	data, err := json.Marshal(room)
	if err != nil {
		return domain.Room{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		nameKey := []byte("roomname:" + name)
		if _, err := txn.Get(nameKey); err == nil {
			return errors.ErrRoomAlreadyExists
		}
		if err := txn.Set([]byte(roomKey(room.ID)), data); err != nil {
			return err
		}
		return txn.Set(nameKey, fmt.Appendf(nil, "%d", room.ID))
	})
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(id domain.RoomID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(roomKey(id)))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &room)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Room{}, errors.ErrUnknownRoom
	}
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) ListRooms() ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("room:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var room domain.Room
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &room)
			}); err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	return rooms, err
}

// roomKey zero-pads the ID so lexicographic scans list rooms in creation
// order.
func roomKey(id domain.RoomID) string {
	return fmt.Sprintf("room:%010d", id)
}
