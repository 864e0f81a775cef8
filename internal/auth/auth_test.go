package auth

import (
	"context"
	"testing"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	s := NewAuthService(nil, "test-secret")

	user := &models.User{ID: 7, Username: "alice", Role: models.RoleModerator}
	token, err := s.GenerateToken(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity, err := s.GetIdentityFromToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.UserID != 7 {
		t.Errorf("expected user id 7, got %d", identity.UserID)
	}
	if identity.Username != "alice" {
		t.Errorf("expected username alice, got %s", identity.Username)
	}
	if identity.Role != models.RoleModerator {
		t.Errorf("expected role MODERATOR, got %s", identity.Role)
	}
}

func TestAuthService_WrongSecretRejected(t *testing.T) {
	issuer := NewAuthService(nil, "secret-a")
	verifier := NewAuthService(nil, "secret-b")

	token, err := issuer.GenerateToken(&models.User{ID: 1, Username: "alice", Role: models.RoleUser})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := verifier.GetIdentityFromToken(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestAuthService_GarbageTokenRejected(t *testing.T) {
	s := NewAuthService(nil, "test-secret")
	if _, err := s.GetIdentityFromToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestAuthService_RegisterValidation(t *testing.T) {
	// Invalid inputs are rejected before the database is touched, so a
	// nil DB is fine here.
	s := NewAuthService(nil, "test-secret")

	tests := []struct {
		name   string
		params RegisterParams
	}{
		{
			name:   "EmptyUsername",
			params: RegisterParams{Email: "a@b.com", Password: "password123"},
		},
		{
			name:   "EmptyEmail",
			params: RegisterParams{Username: "alice", Password: "password123"},
		},
		{
			name:   "EmptyPassword",
			params: RegisterParams{Username: "alice", Email: "a@b.com"},
		},
		{
			name:   "ShortPassword",
			params: RegisterParams{Username: "alice", Email: "a@b.com", Password: "abc"},
		},
		{
			name: "LongUsername",
			params: RegisterParams{
				Username: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				Email:    "a@b.com",
				Password: "password123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.params)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperrors.From(err).Code != apperrors.CodeInvalidArgument {
				t.Errorf("expected INVALID_ARGUMENT, got %s", apperrors.From(err).Code)
			}
		})
	}
}
