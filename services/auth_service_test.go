package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthFixture(t *testing.T) (*AuthService, *mocks.MockIUserRepository, *mocks.MockICache) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	c := mocks.NewMockICache(ctrl)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewAuthService(slog.Default(), users, tokens, c), users, c
}

func Test_Register_Issues_Token_And_Invalidates_List(t *testing.T) {
	req := require.New(t)
	service, users, c := newAuthFixture(t)

	created := domain.User{ID: "u1", Name: "alice", Email: "alice@example.com", Roles: []string{"user"}}
	users.EXPECT().CreateUser("alice", "alice@example.com", gomock.Any()).
		DoAndReturn(func(_, _, hashedPassword string) (domain.User, error) {
			// The repository only ever sees the hash.
			match, err := auth.ComparePassword("Sup3r-Secret-Pass!", hashedPassword)
			require.NoError(t, err)
			require.True(t, match)
			return created, nil
		})
	c.EXPECT().Delete("all_users").Return(nil)

	token, user, err := service.Register(context.Background(), "alice@example.com", "Sup3r-Secret-Pass!")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal(created, user)
}

func Test_Register_Rejects_Weak_Password(t *testing.T) {
	req := require.New(t)
	service, users, _ := newAuthFixture(t)

	users.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, _, err := service.Register(context.Background(), "alice@example.com", "alllowercase")
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func Test_Register_Duplicate_Email(t *testing.T) {
	req := require.New(t)
	service, users, _ := newAuthFixture(t)

	users.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.User{}, errors.ErrUserAlreadyExists)

	_, _, err := service.Register(context.Background(), "alice@example.com", "Sup3r-Secret-Pass!")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Login_Succeeds_With_Valid_Credentials(t *testing.T) {
	req := require.New(t)
	service, users, _ := newAuthFixture(t)

	hashedPassword, err := auth.HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)
	stored := domain.User{
		ID:           "u1",
		Email:        "alice@example.com",
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
	}
	users.EXPECT().GetUserByEmail("alice@example.com").Return(stored, nil)

	token, user, err := service.Login(context.Background(), "alice@example.com", "Sup3r-Secret-Pass!")
	req.NoError(err)
	req.NotEmpty(token)
	req.Equal(stored, user)
}

// Unknown email and wrong password must be indistinguishable.
func Test_Login_Failures_Look_Identical(t *testing.T) {
	req := require.New(t)
	service, users, _ := newAuthFixture(t)

	hashedPassword, err := auth.HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)

	users.EXPECT().GetUserByEmail("ghost@example.com").
		Return(domain.User{}, errors.ErrUnknownUser)
	_, _, unknownErr := service.Login(context.Background(), "ghost@example.com", "whatever")

	users.EXPECT().GetUserByEmail("alice@example.com").
		Return(domain.User{ID: "u1", PasswordHash: hashedPassword}, nil)
	_, _, wrongErr := service.Login(context.Background(), "alice@example.com", "Wrong-Passw0rd!")

	req.ErrorIs(unknownErr, errors.ErrInvalidCredentials)
	req.ErrorIs(wrongErr, errors.ErrInvalidCredentials)
	req.Equal(unknownErr, wrongErr)
}
