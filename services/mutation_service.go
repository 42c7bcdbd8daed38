package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chat-relay/auth"
	"chat-relay/bus"
	"chat-relay/cache"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/search"

	"github.com/abadojack/whatlanggo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IMutationService interface {
	CreateUser(ctx context.Context, name, email, password string) (domain.User, error)
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	CreateMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
}

var validate = validator.New()

type createUserInput struct {
	Name  string `validate:"required,min=1,max=64"`
	Email string `validate:"required,email"`
}

type createRoomInput struct {
	Name string `validate:"required,min=1,max=64"`
}

// MutationService performs writes against the store, invalidates the
// affected cache entries, and publishes change events on the bus. Cache
// invalidation and publication only ever run after a committed insert,
// and invalidation always precedes publication: a subscriber reacting to
// the event re-reads through a cold cache and sees fresh data.
type MutationService struct {
	users     repositories.IUserRepository
	rooms     repositories.IRoomRepository
	messages  repositories.IMessageRepository
	cache     cache.ICache
	publisher bus.Publisher
	moderator *moderation.Moderator
	index     search.Indexer
	log       *slog.Logger
}

func NewMutationService(log *slog.Logger, users repositories.IUserRepository,
	rooms repositories.IRoomRepository, messages repositories.IMessageRepository,
	c cache.ICache, publisher bus.Publisher, moderator *moderation.Moderator,
	index search.Indexer) *MutationService {
	return &MutationService{
		users:     users,
		rooms:     rooms,
		messages:  messages,
		cache:     c,
		publisher: publisher,
		moderator: moderator,
		index:     index,
		log:       log,
	}
}

// CreateUser registers a user and invalidates the coarse-grained user
// list cache. There is exactly one list entry for all users, so a plain
// delete suffices.
func (s *MutationService) CreateUser(_ context.Context, name, email,
	password string) (domain.User, error) {
	if err := validate.Struct(createUserInput{Name: name, Email: email}); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}
	if err := auth.ValidateRegister(auth.RegisterRequest{Email: email, Password: password}); err != nil {
		return domain.User{}, err
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(name, email, hashedPassword)
	if err != nil {
		return domain.User{}, err
	}

	if err := s.cache.Delete(keyAllUsers); err != nil {
		s.log.Warn("User list invalidation failed", "error", err)
	}
	return user, nil
}

func (s *MutationService) CreateRoom(_ context.Context, name string) (domain.Room, error) {
	if err := validate.Struct(createRoomInput{Name: name}); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", errors.ErrInvalidInput, err)
	}

	room, err := s.rooms.CreateRoom(name)
	if err != nil {
		return domain.Room{}, err
	}

	if err := s.cache.Delete(keyAllRooms); err != nil {
		s.log.Warn("Room list invalidation failed", "error", err)
	}
	return room, nil
}

// CreateMessage validates sender and room existence before the insert so
// a dangling reference surfaces as a validation error, not a store
// constraint failure. After the committed insert it drops every cached
// page of the room in one atomic prefix delete, then publishes the event.
// A failed insert triggers neither.
func (s *MutationService) CreateMessage(_ context.Context,
	cmd domain.PostMessageCommand) (domain.Message, error) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}

	if _, err := s.users.GetUserByID(cmd.SenderID); err != nil {
		return domain.Message{}, err
	}
	if _, err := s.rooms.GetRoom(cmd.RoomID); err != nil {
		return domain.Message{}, err
	}

	sanitized, censored := s.moderator.Censor(content)
	if len(censored) > 0 {
		s.log.Warn("Message content censored",
			"room_id", cmd.RoomID,
			"sender_id", cmd.SenderID,
			"words", len(censored))
	}
	info := whatlanggo.Detect(sanitized)

	message := domain.Message{
		ID:        uuid.New(),
		RoomID:    cmd.RoomID,
		SenderID:  cmd.SenderID,
		Content:   sanitized,
		Lang:      info.Lang.Iso6391(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.messages.StoreMessage(message); err != nil {
		return domain.Message{}, err
	}

	// Invalidate before publish. The reversed order would let a subscriber
	// re-query on the event, repopulate the cache with pre-commit pages,
	// and have the late invalidation lose the race.
	if err := s.cache.DeletePrefix(messagesPrefix(cmd.RoomID)); err != nil {
		s.log.Error("Room page invalidation failed", "room_id", cmd.RoomID, "error", err)
	}
	s.publish(message)

	if s.index != nil {
		if err := s.index.Index(message); err != nil {
			s.log.Warn("Message indexing failed", "message_id", message.ID, "error", err)
		}
	}
	return message, nil
}

func (s *MutationService) publish(message domain.Message) {
	payload, err := json.Marshal(domain.MessageCreated{
		ID:       message.ID,
		RoomID:   message.RoomID,
		SenderID: message.SenderID,
		Content:  message.Content,
		Lang:     message.Lang,
		At:       message.CreatedAt,
	})
	if err != nil {
		s.log.Error("Event encoding failed", "message_id", message.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(domain.TopicForRoom(message.RoomID), payload); err != nil {
		// The mutation already committed; delivery is fire-and-forget.
		s.log.Error("Event publication failed", "message_id", message.ID, "error", err)
	}
}
