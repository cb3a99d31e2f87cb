package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "querygate"

type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. Verification is
// self-contained: there is no session table, so tokens cannot be revoked
// before they expire.
type TokenService struct {
	store  Store
	secret []byte
	now    func() time.Time
}

func NewTokenService(store Store, secret string) *TokenService {
	return &TokenService{
		store:  store,
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

func (s *TokenService) Issue(p *Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrNonPositiveTTL
	}
	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify checks signature, expiry and subject, in that order.
func (s *TokenService) Verify(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && badSignatureSegment(tokenStr) {
			return nil, &TokenFailure{Reason: ReasonBadSignature, Err: err}
		}
		return nil, classify(err)
	}
	if claims.Subject == "" {
		return nil, &TokenFailure{Reason: ReasonMalformed, Err: errors.New("missing subject")}
	}
	p, err := s.store.Lookup(ctx, claims.Subject)
	if err != nil {
		return nil, &TokenFailure{Reason: ReasonUnknownSubject, Err: err}
	}
	return p, nil
}

func classify(err error) *TokenFailure {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &TokenFailure{Reason: ReasonBadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenFailure{Reason: ReasonExpired, Err: err}
	default:
		// ErrTokenMalformed, ErrTokenUnverifiable, wrong issuer, missing exp.
		return &TokenFailure{Reason: ReasonMalformed, Err: err}
	}
}

// badSignatureSegment reports whether the header and claims of a three-part
// token decode cleanly while the signature segment does not. Non-canonical
// encodings of a valid signature land here.
func badSignatureSegment(tokenStr string) bool {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, seg := range parts[:2] {
		if _, err := enc.DecodeString(seg); err != nil {
			return false
		}
	}
	_, err := enc.DecodeString(parts[2])
	return err != nil
}
