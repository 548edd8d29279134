package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// DefaultTokenTTL is applied when no positive lifetime is configured.
const DefaultTokenTTL = 30 * time.Minute

// TokenMetrics receives token outcomes.
type TokenMetrics interface {
	RecordTokenIssued()
	RecordTokenRejected(reason string)
}

// TokenProvider issues and verifies HS256 signed session tokens.
// It is immutable after construction and safe for concurrent use.
type TokenProvider struct {
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics TokenMetrics
}

// Option customizes a TokenProvider.
type Option func(*TokenProvider)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(tp *TokenProvider) {
		if now != nil {
			tp.now = now
		}
	}
}

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(tp *TokenProvider) {
		if logger != nil {
			tp.logger = logger
		}
	}
}

// WithMetrics attaches a sink for issued and rejected token counts.
func WithMetrics(metrics TokenMetrics) Option {
	return func(tp *TokenProvider) {
		tp.metrics = metrics
	}
}

// NewTokenProvider builds a provider. An empty secret is a configuration error.
func NewTokenProvider(secret []byte, ttl time.Duration, opts ...Option) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: secret key is empty", ErrConfiguration)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	tp := &TokenProvider{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tp)
	}
	return tp, nil
}

// TTL returns the validity window applied to every issued token.
func (tp *TokenProvider) TTL() time.Duration {
	return tp.ttl
}

// Issue signs a token for subject and returns it with its expiration time.
func (tp *TokenProvider) Issue(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrEmptySubject
	}

	issuedAt := tp.now()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tp.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tp.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	if tp.metrics != nil {
		tp.metrics.RecordTokenIssued()
	}
	return tokenString, claims.ExpiresAt.Time, nil
}

// Validate reports whether token carries a good signature and has not expired.
// Every failure yields false.
func (tp *TokenProvider) Validate(token string) bool {
	_, err := tp.verify(token)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenSignatureInvalid),
		errors.Is(err, ErrTokenMalformed):
		tp.reject(err)
		return false
	default:
		tp.rejectUnclassified(err)
		return false
	}
}

// ExtractSubject verifies token and returns its subject. Failures wrap
// ErrTokenInvalid together with the specific cause.
func (tp *TokenProvider) ExtractSubject(token string) (string, error) {
	claims, err := tp.verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims.Subject, nil
}

func (tp *TokenProvider) verify(tokenStr string) (*jwt.RegisteredClaims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMalformed
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, tp.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrTokenMalformed)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrTokenMalformed)
	}
	// A token stays valid through the instant of its expiration.
	if claims.ExpiresAt.Time.Before(tp.now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func (tp *TokenProvider) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method != jwt.SigningMethodHS256 {
		return nil, errors.New("unexpected signing method")
	}
	return tp.secret, nil
}

func (tp *TokenProvider) reject(err error) {
	reason := rejectionReason(err)
	tp.logger.Debug("token rejected", zap.String("reason", reason), zap.Error(err))
	if tp.metrics != nil {
		tp.metrics.RecordTokenRejected(reason)
	}
}

// rejectUnclassified records a failure that verify did not map to a known kind.
func (tp *TokenProvider) rejectUnclassified(err error) {
	tp.logger.Warn("token rejected with unclassified error", zap.Error(err))
	if tp.metrics != nil {
		tp.metrics.RecordTokenRejected("unknown")
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
