package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homestead/homestead/internal/model"
)

func TestSessionManager_IssueAndValidate(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	user := &model.User{Username: "alice", Access: []string{model.GroupCospend}}

	token, issued, err := m.Issue(user, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if issued.ID == "" {
		t.Error("expected token ID")
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if len(claims.Access) != 1 || claims.Access[0] != model.GroupCospend {
		t.Errorf("Access = %v", claims.Access)
	}

	s := claims.Session()
	if !s.HasGroup(model.GroupCospend) || s.HasGroup(model.GroupFitness) {
		t.Errorf("unexpected group membership for %v", s.Access)
	}
}

func TestSessionManager_Rejects(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	user := &model.User{Username: "alice"}

	expired, _, err := m.Issue(user, time.Now().Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	foreign, _, err := NewSessionManager("other-secret", time.Hour).Issue(user, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "", ErrMissingToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := m.Validate(test.token); !errors.Is(err, test.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	if SessionFromContext(ctx) != nil {
		t.Error("expected no session")
	}
	if UsernameFromContext(ctx) != "" {
		t.Error("expected empty username")
	}

	admin := &Session{Username: "root", Access: []string{model.GroupAdmin}}
	ctx = ContextWithSession(ctx, admin)
	if UsernameFromContext(ctx) != "root" {
		t.Errorf("UsernameFromContext = %q", UsernameFromContext(ctx))
	}
	if !MustSessionFromContext(ctx).HasGroup(model.GroupMarioKart) {
		t.Error("admin should hold every group")
	}

	var nilSession *Session
	if nilSession.HasGroup(model.GroupAdmin) {
		t.Error("nil session has no groups")
	}
}
