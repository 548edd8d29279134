package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/domain"
	"github.com/spec-kit/jwt-auth-service/internal/repository"
)

const principalCachePrefix = "principal:"

// UserDetailsService resolves token subjects (user primary keys) to principals.
// Resolved principals are cached in Redis when a client and TTL are provided;
// cache failures fall back to the repository.
type UserDetailsService struct {
	users    repository.UserRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewUserDetailsService builds the resolver. cache may be nil.
func NewUserDetailsService(users repository.UserRepository, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *UserDetailsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserDetailsService{users: users, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// ResolvePrincipal implements auth.PrincipalResolver.
func (s *UserDetailsService) ResolvePrincipal(ctx context.Context, subject string) (*domain.Principal, error) {
	if _, err := uuid.Parse(subject); err != nil {
		return nil, fmt.Errorf("%w: %q", auth.ErrUnknownSubject, subject)
	}

	if principal, ok := s.cached(ctx, subject); ok {
		return principal, nil
	}

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", auth.ErrUnknownSubject, subject)
		}
		return nil, fmt.Errorf("load user %s: %w", subject, err)
	}

	principal := domain.NewPrincipal(user)
	s.store(ctx, subject, principal)
	return principal, nil
}

func (s *UserDetailsService) cacheEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

func (s *UserDetailsService) cached(ctx context.Context, subject string) (*domain.Principal, bool) {
	if !s.cacheEnabled() {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, principalCachePrefix+subject).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("principal cache read failed", zap.String("subject", subject), zap.Error(err))
		}
		return nil, false
	}

	var principal domain.Principal
	if err := json.Unmarshal(raw, &principal); err != nil || principal.User == nil {
		s.logger.Warn("principal cache entry corrupt", zap.String("subject", subject))
		return nil, false
	}
	return &principal, true
}

func (s *UserDetailsService) store(ctx context.Context, subject string, principal *domain.Principal) {
	if !s.cacheEnabled() {
		return
	}

	raw, err := json.Marshal(principal)
	if err != nil {
		s.logger.Warn("principal cache encode failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := s.cache.Set(ctx, principalCachePrefix+subject, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("principal cache write failed", zap.String("subject", subject), zap.Error(err))
	}
}
