package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user, err := s.Accounts.CreateUser(ctx, "testuser", "hash123", model.RoleMember)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", user.Username)
	}
	if user.Role != model.RoleMember {
		t.Errorf("expected role 'member', got %q", user.Role)
	}

	got, err := s.Accounts.GetUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Accounts.CreateUser(context.Background(), "x", "hash", "owner")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Accounts.CreateUser(ctx, "alice", "hash", model.RoleAdmin)

	user, err := s.Accounts.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := s.Accounts.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDeleteUserFreesUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.Accounts.CreateUser(ctx, "alice", "hash", model.RoleMember)
	if err := s.Accounts.DeleteUser(ctx, first.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := s.Accounts.DeleteUser(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected not found deleting twice, got %v", err)
	}

	if _, err := s.Accounts.CreateUser(ctx, "alice", "hash", model.RoleViewer); err != nil {
		t.Fatalf("recreating deleted username: %v", err)
	}

	n, err := s.Accounts.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 active user, got %d", n)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, _ := s.Accounts.CreateUser(ctx, "carol", "hash", model.RoleViewer)
	if err := s.Accounts.UpdateUser(ctx, u.ID, model.RoleAdmin); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if err := s.Accounts.UpdateUserPassword(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, _ := s.Accounts.GetUser(ctx, u.ID)
	if got.Role != model.RoleAdmin || got.PasswordHash != "newhash" {
		t.Errorf("update not applied: %+v", got)
	}

	users, err := s.Accounts.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestRevokeAndCheckToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	revoked, err := s.Accounts.IsTokenRevoked(ctx, "test-jti-1")
	if err != nil {
		t.Fatalf("IsTokenRevoked: %v", err)
	}
	if revoked {
		t.Error("expected token not to be revoked")
	}

	if err := s.Accounts.RevokeToken(ctx, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	// Revoking twice is a no-op.
	if err := s.Accounts.RevokeToken(ctx, "test-jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second RevokeToken: %v", err)
	}

	revoked, _ = s.Accounts.IsTokenRevoked(ctx, "test-jti-1")
	if !revoked {
		t.Error("expected token to be revoked")
	}
	revoked, _ = s.Accounts.IsTokenRevoked(ctx, "test-jti-2")
	if revoked {
		t.Error("expected different token not to be revoked")
	}
}

func TestJWTSecretIsStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Accounts.JWTSecret(ctx)
	if err != nil {
		t.Fatalf("JWTSecret: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(first))
	}

	second, _ := s.Accounts.JWTSecret(ctx)
	if first != second {
		t.Error("expected the same secret on every call")
	}
}
