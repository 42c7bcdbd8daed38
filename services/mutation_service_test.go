package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type mutationFixture struct {
	users     *mocks.MockIUserRepository
	rooms     *mocks.MockIRoomRepository
	messages  *mocks.MockIMessageRepository
	cache     *mocks.MockICache
	publisher *mocks.MockPublisher
	service   *MutationService
}

func newMutationFixture(t *testing.T, moderator *moderation.Moderator) mutationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := mutationFixture{
		users:     mocks.NewMockIUserRepository(ctrl),
		rooms:     mocks.NewMockIRoomRepository(ctrl),
		messages:  mocks.NewMockIMessageRepository(ctrl),
		cache:     mocks.NewMockICache(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
	}
	if moderator == nil {
		passthrough, err := moderation.NewModerator(nil, '*')
		require.NoError(t, err)
		moderator = &passthrough
	}
	f.service = NewMutationService(slog.Default(), f.users, f.rooms, f.messages,
		f.cache, f.publisher, moderator, nil)
	return f
}

func Test_Create_Message_Invalidates_Then_Publishes(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	cmd := domain.PostMessageCommand{RoomID: 7, SenderID: "u1", Content: "hello there"}
	f.users.EXPECT().GetUserByID("u1").Return(domain.User{ID: "u1"}, nil)
	f.rooms.EXPECT().GetRoom(domain.RoomID(7)).Return(domain.Room{ID: 7, Name: "general"}, nil)

	var published []byte
	gomock.InOrder(
		f.messages.EXPECT().StoreMessage(gomock.Any()).Return(nil),
		// Every cached page of the room goes in one prefix drop, strictly
		// before the event leaves.
		f.cache.EXPECT().DeletePrefix("messages_by_room:7:").Return(nil),
		f.publisher.EXPECT().Publish("room:7", gomock.Any()).
			DoAndReturn(func(_ string, payload []byte) error {
				published = payload
				return nil
			}),
	)

	message, err := f.service.CreateMessage(context.Background(), cmd)
	req.NoError(err)
	req.Equal("hello there", message.Content)
	req.NotEmpty(message.ID)

	var event domain.MessageCreated
	req.NoError(json.Unmarshal(published, &event))
	req.Equal(message.ID, event.ID)
	req.Equal(domain.RoomID(7), event.RoomID)
	req.Equal("hello there", event.Content)
}

func Test_Create_Message_Unknown_Room_Has_No_Side_Effects(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	f.users.EXPECT().GetUserByID("u1").Return(domain.User{ID: "u1"}, nil)
	f.rooms.EXPECT().GetRoom(domain.RoomID(999)).Return(domain.Room{}, errors.ErrUnknownRoom)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)
	f.cache.EXPECT().DeletePrefix(gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.CreateMessage(context.Background(),
		domain.PostMessageCommand{RoomID: 999, SenderID: "u1", Content: "hi"})
	req.ErrorIs(err, errors.ErrUnknownRoom)
}

func Test_Create_Message_Unknown_Sender(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	f.users.EXPECT().GetUserByID("ghost").Return(domain.User{}, errors.ErrUnknownUser)
	f.rooms.EXPECT().GetRoom(gomock.Any()).Times(0)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Times(0)

	_, err := f.service.CreateMessage(context.Background(),
		domain.PostMessageCommand{RoomID: 1, SenderID: "ghost", Content: "hi"})
	req.ErrorIs(err, errors.ErrUnknownUser)
}

func Test_Create_Message_Rejects_Blank_Content(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	for _, content := range []string{"", "   ", "\n\t "} {
		_, err := f.service.CreateMessage(context.Background(),
			domain.PostMessageCommand{RoomID: 1, SenderID: "u1", Content: content})
		req.ErrorIs(err, errors.ErrEmptyContent)
	}
}

func Test_Create_Message_Failed_Insert_Publishes_Nothing(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	f.users.EXPECT().GetUserByID("u1").Return(domain.User{ID: "u1"}, nil)
	f.rooms.EXPECT().GetRoom(domain.RoomID(7)).Return(domain.Room{ID: 7}, nil)
	f.messages.EXPECT().StoreMessage(gomock.Any()).Return(errors.ErrStoreUnavailable)
	f.cache.EXPECT().DeletePrefix(gomock.Any()).Times(0)
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	_, err := f.service.CreateMessage(context.Background(),
		domain.PostMessageCommand{RoomID: 7, SenderID: "u1", Content: "hi"})
	req.ErrorIs(err, errors.ErrStoreUnavailable)
}

func Test_Create_Message_Censors_Banned_Words(t *testing.T) {
	req := require.New(t)
	moderator, err := moderation.NewModerator([]string{"heck"}, '*')
	req.NoError(err)
	f := newMutationFixture(t, &moderator)

	f.users.EXPECT().GetUserByID("u1").Return(domain.User{ID: "u1"}, nil)
	f.rooms.EXPECT().GetRoom(domain.RoomID(1)).Return(domain.Room{ID: 1}, nil)

	var stored domain.Message
	f.messages.EXPECT().StoreMessage(gomock.Any()).
		DoAndReturn(func(message domain.Message) error {
			stored = message
			return nil
		})
	f.cache.EXPECT().DeletePrefix("messages_by_room:1:").Return(nil)
	f.publisher.EXPECT().Publish("room:1", gomock.Any()).Return(nil)

	message, err := f.service.CreateMessage(context.Background(),
		domain.PostMessageCommand{RoomID: 1, SenderID: "u1", Content: "heck no"})
	req.NoError(err)
	req.Equal("**** no", message.Content)
	req.Equal(message.Content, stored.Content)
}

func Test_Create_User_Invalidates_User_List(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	created := domain.User{ID: "u1", Name: "alice", Email: "alice@example.com"}
	f.users.EXPECT().CreateUser("alice", "alice@example.com", gomock.Any()).Return(created, nil)
	f.cache.EXPECT().Delete("all_users").Return(nil)

	user, err := f.service.CreateUser(context.Background(), "alice", "alice@example.com", "Sup3r-Secret-Pass!")
	req.NoError(err)
	req.Equal(created, user)
}

func Test_Create_User_Invalid_Input(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	f.users.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	f.cache.EXPECT().Delete(gomock.Any()).Times(0)

	_, err := f.service.CreateUser(context.Background(), "alice", "not-an-email", "Sup3r-Secret-Pass!")
	req.ErrorIs(err, errors.ErrInvalidInput)

	_, err = f.service.CreateUser(context.Background(), "alice", "alice@example.com", "weak")
	req.Error(err)
}

func Test_Create_Room_Invalidates_Room_List(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	created := domain.Room{ID: 1, Name: "general"}
	f.rooms.EXPECT().CreateRoom("general").Return(created, nil)
	f.cache.EXPECT().Delete("all_rooms").Return(nil)

	room, err := f.service.CreateRoom(context.Background(), "general")
	req.NoError(err)
	req.Equal(created, room)
}

func Test_Create_Room_Duplicate_Does_Not_Invalidate(t *testing.T) {
	req := require.New(t)
	f := newMutationFixture(t, nil)

	f.rooms.EXPECT().CreateRoom("general").Return(domain.Room{}, errors.ErrRoomAlreadyExists)
	f.cache.EXPECT().Delete(gomock.Any()).Times(0)

	_, err := f.service.CreateRoom(context.Background(), "general")
	req.ErrorIs(err, errors.ErrRoomAlreadyExists)
}
