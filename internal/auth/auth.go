package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Service exchanges credentials for bearer tokens.
type Service struct {
	store  Store
	tokens *TokenService
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(store Store, tokens *TokenService, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *Service) TTL() time.Duration { return s.ttl }

// Login authenticates username/password and issues a token. Every credential
// problem comes back as ErrInvalidCredentials; the specific reason is logged.
func (s *Service) Login(ctx context.Context, username, password string) (*Principal, string, error) {
	user, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		reason := "unknown"
		var af *AuthFailure
		if errors.As(err, &af) {
			reason = af.Reason.String()
		}
		s.logger.WarnContext(ctx, "login rejected", "username", username, "reason", reason)
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user, s.ttl)
	if err != nil {
		return nil, "", err
	}
	s.logger.InfoContext(ctx, "token issued", "username", user.Username, "ttl", s.ttl)
	return user, token, nil
}
