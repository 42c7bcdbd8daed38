//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(name, email, hashedPassword string) (domain.User, error)
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(id string) (domain.User, error)
	ListUsers() ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// CreateUser persists a user under "user:{email}" with a "userid:{id}"
// index for ID lookups. Email uniqueness is enforced inside the
// transaction, so two concurrent registrations cannot both commit.
func (u UserRepository) CreateUser(name, email, hashedPassword string) (domain.User, error) {
	user := domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		// Stored with second precision, so carry no finer one in memory.
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(diskUser(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte("user:" + email)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte("userid:"+user.ID), []byte(email))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, email, &user)
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUnknownUser
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetUserByID(id string) (domain.User, error) {
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("userid:" + id))
		if err != nil {
			return err
		}
		email, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readUser(txn, string(email), &user)
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrUnknownUser
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) ListUsers() ([]domain.User, error) {
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du userRecord
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &du)
			}); err != nil {
				return err
			}
			users = append(users, du.toUser())
		}
		return nil
	})
	return users, err
}

func readUser(txn *badger.Txn, email string, out *domain.User) error {
	item, err := txn.Get([]byte("user:" + email))
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		var du userRecord
		if err := json.Unmarshal(value, &du); err != nil {
			return err
		}
		*out = du.toUser()
		return nil
	})
}

// userRecord is the storage encoding. The password hash is serialized
// here, unlike domain.User whose JSON form deliberately omits it.
type userRecord struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles"`
	CreatedAt    int64    `json:"created_at"`
}

func diskUser(user domain.User) userRecord {
	return userRecord{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Roles:        user.Roles,
		CreatedAt:    user.CreatedAt.Unix(),
	}
}

func (r userRecord) toUser() domain.User {
	return domain.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        r.Roles,
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
	}
}
