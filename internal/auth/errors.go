package auth

import "errors"

var (
	// ErrConfiguration is returned when the provider cannot be built from its settings.
	ErrConfiguration = errors.New("token provider configuration invalid")
	// ErrEmptySubject is returned by Issue for an empty subject.
	ErrEmptySubject = errors.New("token subject is empty")

	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")

	// ErrTokenInvalid wraps every parse or verification failure surfaced by ExtractSubject.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUnknownSubject is returned by a PrincipalResolver when no account matches the subject.
	ErrUnknownSubject = errors.New("token subject unknown")
)

// rejectionReason names a verification failure for logs and metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
