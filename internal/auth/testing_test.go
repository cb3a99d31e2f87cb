package auth

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-key-for-unit-tests"
	testPassword = "test$$password"
)

var t0 = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func at(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(t *testing.T) *StaticStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	s, err := NewStaticStore([]Principal{
		{Username: "alice", DisplayName: "Alice Example", SecretHash: string(hash), Role: RoleAnalyst},
		{Username: "bob", DisplayName: "Bob Example", SecretHash: string(hash), Role: RoleReadOnly},
	})
	if err != nil {
		t.Fatalf("NewStaticStore: %v", err)
	}
	return s
}
