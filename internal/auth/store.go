package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Store is the credential registry the gateway authenticates against.
type Store interface {
	Authenticate(ctx context.Context, username, password string) (*Principal, error)
	Lookup(ctx context.Context, username string) (*Principal, error)
}

var ErrUserNotFound = errors.New("user not found")

// StaticStore is a read-only in-memory Store. It is safe for concurrent use
// because nothing mutates it after construction.
type StaticStore struct {
	users map[string]*Principal
	// dummyHash is compared against for unknown users. It uses the highest
	// cost among the principals so a miss is never cheaper than a hit.
	dummyHash []byte
}

func NewStaticStore(principals []Principal) (*StaticStore, error) {
	s := &StaticStore{users: make(map[string]*Principal, len(principals))}
	maxCost := 0
	for i := range principals {
		p := principals[i]
		if p.Username == "" {
			return nil, errors.New("principal with empty username")
		}
		if _, dup := s.users[p.Username]; dup {
			return nil, fmt.Errorf("duplicate principal %q", p.Username)
		}
		cost, err := bcrypt.Cost([]byte(p.SecretHash))
		if err != nil {
			return nil, fmt.Errorf("principal %q: %w", p.Username, err)
		}
		maxCost = max(maxCost, cost)
		s.users[p.Username] = &p
	}
	if maxCost == 0 {
		maxCost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte("querygate-dummy-secret"), maxCost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

func (s *StaticStore) Lookup(_ context.Context, username string) (*Principal, error) {
	p, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *StaticStore) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	p, err := s.Lookup(ctx, username)
	if err != nil {
		// Burn a comparison so unknown users cost as much as known ones.
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, &AuthFailure{Reason: ReasonNotFound}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.SecretHash), []byte(password)); err != nil {
		return nil, &AuthFailure{Reason: ReasonInvalidCredentials}
	}
	return p, nil
}

func (s *StaticStore) Len() int { return len(s.users) }

// HashPassword returns a bcrypt hash suitable for the users file.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type usersFile struct {
	Users []struct {
		Username     string `yaml:"username"`
		DisplayName  string `yaml:"display_name"`
		PasswordHash string `yaml:"password_hash"`
		Password     string `yaml:"password"`
		Role         Role   `yaml:"role"`
	} `yaml:"users"`
}

// LoadUsersFile reads principals from a YAML users file. Entries may carry a
// bcrypt password_hash or, for development, a plaintext password that is hashed
// on load.
func LoadUsersFile(path string) ([]Principal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return ParseUsers(data)
}

func ParseUsers(data []byte) ([]Principal, error) {
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return nil, fmt.Errorf("parse users file: %w", err)
	}
	out := make([]Principal, 0, len(uf.Users))
	for _, u := range uf.Users {
		if u.Username == "" {
			continue
		}
		hash := u.PasswordHash
		if hash == "" {
			if u.Password == "" {
				return nil, fmt.Errorf("user %q has neither password_hash nor password", u.Username)
			}
			var err error
			hash, err = HashPassword(u.Password)
			if err != nil {
				return nil, fmt.Errorf("hash password for %q: %w", u.Username, err)
			}
		}
		role := u.Role
		if role == "" {
			role = RoleReadOnly
		}
		display := u.DisplayName
		if display == "" {
			display = u.Username
		}
		out = append(out, Principal{
			Username:    u.Username,
			DisplayName: display,
			SecretHash:  hash,
			Role:        role,
		})
	}
	return out, nil
}
