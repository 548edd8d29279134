package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/config"
	"github.com/spec-kit/jwt-auth-service/internal/domain"
	"github.com/spec-kit/jwt-auth-service/internal/events"
	"github.com/spec-kit/jwt-auth-service/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrMissingFields      = errors.New("username, name and password required")
)

// AuthService coordinates sign-up and sign-in flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenProvider
	hasher     auth.PasswordHasher
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Tokens     *auth.TokenProvider
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		hasher:     auth.NewPasswordHasher(cfg.BcryptCost),
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// SignUp creates an account holding ROLE_USER.
func (s *AuthService) SignUp(ctx context.Context, username, name, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || name == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		PasswordHash: hash,
		Roles:        []string{string(domain.AuthorityUser)},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserSignedUp, user.ID, user.Username, nil))
	return user, nil
}

// SignIn verifies credentials and issues a token whose subject is the user ID.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.signInFailed(ctx, username, "unknown_user")
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.signInFailed(ctx, username, "bad_password")
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventTokenIssued, user.ID, user.Username, events.TokenIssuedPayload{ExpiresAt: exp}))
	return user, token, exp, nil
}

func (s *AuthService) signInFailed(ctx context.Context, username, reason string) {
	s.publish(ctx, events.NewEvent(events.EventSignInFailed, "", username, events.SignInFailedPayload{Reason: reason}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
