package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chat-relay/auth"
	"chat-relay/cache"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, domain.User, error)
	Register(ctx context.Context, email, password string) (string, domain.User, error)
}

type AuthService struct {
	users  repositories.IUserRepository
	tokens *auth.TokenManager
	cache  cache.ICache
	log    *slog.Logger
}

func NewAuthService(log *slog.Logger, users repositories.IUserRepository,
	tokens *auth.TokenManager, c cache.ICache) *AuthService {
	return &AuthService{users: users, tokens: tokens, cache: c, log: log}
}

// Register validates the input, hashes the password and persists the
// user, then issues the initial session token. The display name defaults
// to the email local part until the user renames themselves.
func (s *AuthService) Register(_ context.Context, email, password string) (string, domain.User, error) {
	valReq := auth.RegisterRequest{Email: email, Password: password}

	// Business rules first, before any expensive cryptographic work.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// Hashing happens here so the repository never sees plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	name, _, _ := strings.Cut(email, "@")
	user, err := s.users.CreateUser(name, email, hashedPassword)
	if err != nil {
		return "", domain.User{}, err // propagates ErrUserAlreadyExists when the email is taken
	}

	if err := s.cache.Delete(keyAllUsers); err != nil {
		s.log.Warn("User list invalidation failed", "error", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return token, user, nil
}

// Login verifies the credentials and issues an access token. Unknown
// email and wrong password are indistinguishable to the caller, to
// prevent user enumeration.
func (s *AuthService) Login(_ context.Context, email, password string) (string, domain.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Roles)
	if err != nil {
		return "", domain.User{}, errors.ErrTokenGeneration
	}
	return token, user, nil
}
