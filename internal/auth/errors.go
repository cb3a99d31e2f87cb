package auth

import (
	"errors"
	"fmt"
)

// AuthReason tells why a credential check failed. It is for logs only; callers
// outside the package must treat every AuthFailure the same.
type AuthReason int

const (
	ReasonNotFound AuthReason = iota + 1
	ReasonInvalidCredentials
)

func (r AuthReason) String() string {
	switch r {
	case ReasonNotFound:
		return "not_found"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

type AuthFailure struct {
	Reason AuthReason
}

func (e *AuthFailure) Error() string {
	return "authentication failed: " + e.Reason.String()
}

// Is makes every AuthFailure match ErrInvalidCredentials.
func (e *AuthFailure) Is(target error) bool {
	return target == ErrInvalidCredentials
}

var ErrInvalidCredentials = errors.New("invalid credentials")

// TokenReason tells why a presented token was rejected.
type TokenReason int

const (
	ReasonMalformed TokenReason = iota + 1
	ReasonBadSignature
	ReasonExpired
	ReasonUnknownSubject
)

func (r TokenReason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonBadSignature:
		return "bad_signature"
	case ReasonExpired:
		return "expired"
	case ReasonUnknownSubject:
		return "unknown_subject"
	default:
		return "unknown"
	}
}

type TokenFailure struct {
	Reason TokenReason
	Err    error
}

func (e *TokenFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token rejected (%s)", e.Reason)
}

func (e *TokenFailure) Unwrap() error { return e.Err }

// Is makes every TokenFailure match ErrUnauthorized.
func (e *TokenFailure) Is(target error) bool {
	return target == ErrUnauthorized
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNonPositiveTTL = errors.New("token ttl must be positive")
)

// TokenReasonOf extracts the rejection reason from err, or 0 if err is not a
// TokenFailure.
func TokenReasonOf(err error) TokenReason {
	var tf *TokenFailure
	if errors.As(err, &tf) {
		return tf.Reason
	}
	return 0
}
