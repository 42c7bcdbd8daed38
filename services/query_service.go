package services

import (
	"context"
	"encoding/json"
	"log/slog"

	"chat-relay/cache"
	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/search"

	"github.com/samber/lo"
)

type IQueryService interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	MessagesByRoom(ctx context.Context, cmd domain.GetMessagesCommand) (domain.MessagePage, error)
	SearchMessages(ctx context.Context, room domain.RoomID, terms string, limit int) ([]search.Hit, error)
}

// MessageSearcher is the read side of the full-text index.
type MessageSearcher interface {
	Search(ctx context.Context, room domain.RoomID, terms string, limit int) ([]search.Hit, error)
}

// QueryService serves reads through the cache with fallback to the store
// of record. The cache never decides correctness: every operation yields
// the same result with the cache entirely absent.
type QueryService struct {
	users    repositories.IUserRepository
	rooms    repositories.IRoomRepository
	messages repositories.IMessageRepository
	cache    cache.ICache
	index    MessageSearcher
	log      *slog.Logger
}

func NewQueryService(log *slog.Logger, users repositories.IUserRepository,
	rooms repositories.IRoomRepository, messages repositories.IMessageRepository,
	c cache.ICache, index MessageSearcher) *QueryService {
	return &QueryService{
		users:    users,
		rooms:    rooms,
		messages: messages,
		cache:    c,
		index:    index,
		log:      log,
	}
}

func (s *QueryService) ListUsers(_ context.Context) ([]domain.User, error) {
	if data, ok := s.cache.Get(keyAllUsers); ok {
		var users []domain.User
		if err := json.Unmarshal(data, &users); err == nil {
			return users, nil
		}
		s.log.Warn("Discarding undecodable cache entry", "key", keyAllUsers)
	}

	users, err := s.users.ListUsers()
	if err != nil {
		return nil, err
	}
	// Listings never carry credentials, whether served from the store or
	// from a cached copy.
	users = lo.Map(users, func(user domain.User, _ int) domain.User {
		user.PasswordHash = ""
		return user
	})
	s.populate(keyAllUsers, users)
	return users, nil
}

func (s *QueryService) ListRooms(_ context.Context) ([]domain.Room, error) {
	if data, ok := s.cache.Get(keyAllRooms); ok {
		var rooms []domain.Room
		if err := json.Unmarshal(data, &rooms); err == nil {
			return rooms, nil
		}
		s.log.Warn("Discarding undecodable cache entry", "key", keyAllRooms)
	}

	rooms, err := s.rooms.ListRooms()
	if err != nil {
		return nil, err
	}
	s.populate(keyAllRooms, rooms)
	return rooms, nil
}

// MessagesByRoom pages a room's messages in ascending timestamp order.
// An unknown room yields an empty page, not an error. The whole connection
// (edges plus page info) is cached under its (room, first, after) key.
func (s *QueryService) MessagesByRoom(_ context.Context,
	cmd domain.GetMessagesCommand) (domain.MessagePage, error) {
	key := messagesKey(cmd)
	if data, ok := s.cache.Get(key); ok {
		var page domain.MessagePage
		if err := json.Unmarshal(data, &page); err == nil {
			return page, nil
		}
		s.log.Warn("Discarding undecodable cache entry", "key", key)
	}

	messages, endCursor, err := s.messages.GetMessages(cmd.RoomID, cmd.After, cmd.First)
	if err != nil {
		return domain.MessagePage{}, err
	}

	page := domain.MessagePage{
		Edges: lo.Map(messages, func(item domain.Message, _ int) domain.MessageEdge {
			return domain.MessageEdge{
				Cursor: repositories.Cursor(item.CreatedAt, item.ID),
				Node:   item,
			}
		}),
		PageInfo: domain.PageInfo{
			EndCursor: endCursor,
			// Heuristic, not an exact lookahead: a page filled to the
			// requested size is assumed to have a successor.
			HasNextPage: cmd.First != nil && len(messages) == *cmd.First,
		},
	}
	s.populate(key, page)
	return page, nil
}

func (s *QueryService) SearchMessages(ctx context.Context, room domain.RoomID,
	terms string, limit int) ([]search.Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.index.Search(ctx, room, terms, limit)
}

// populate writes a freshly read result into the cache with the default
// TTL. Failures are logged, never surfaced: serving the store read is
// always correct.
func (s *QueryService) populate(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("Skipping cache population", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(key, data, 0); err != nil {
		s.log.Warn("Cache population failed", "key", key, "error", err)
	}
}
