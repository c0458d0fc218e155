package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/model"
	"github.com/homestead/homestead/internal/repository"
)

// User errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrRegistrationClosed = errors.New("registration is disabled")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidAccessGroup = errors.New("unknown access group")
	ErrUserNotFound       = errors.New("user not found")
	ErrSamePassword       = errors.New("new password must differ from the old one")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)
	UpdatePassword(ctx context.Context, username, passHash string) error
	ListUsernames(ctx context.Context) ([]string, error)
}

// SessionRevoker blocks tokens until they expire.
type SessionRevoker interface {
	RevokeSession(ctx context.Context, tokenID string, until time.Time) error
}

// UserService handles accounts and sessions.
type UserService struct {
	repo              UserStore
	sessions          *auth.SessionManager
	revoker           SessionRevoker
	allowRegistration bool
	logger            *slog.Logger
	now               func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(repo UserStore, sessions *auth.SessionManager, revoker SessionRevoker, allowRegistration bool, logger *slog.Logger) *UserService {
	return &UserService{
		repo:              repo,
		sessions:          sessions,
		revoker:           revoker,
		allowRegistration: allowRegistration,
		logger:            logger.With("component", "users"),
		now:               time.Now,
	}
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// burnHash spends the time of one verification so unknown users and wrong
// passwords answer alike.
func (s *UserService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("not-a-real-password")
	})
	if s.dummyHash != "" {
		_, _ = auth.VerifyPassword(password, s.dummyHash)
	}
}

// Login verifies credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnHash(password)
			s.logger.Info("login_failed", slog.String("username", username), slog.String("reason", "unknown_user"))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(password, user.PassHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.logger.Info("login_failed", slog.String("username", username), slog.String("reason", "wrong_password"))
		return nil, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PassHash) {
		s.rehash(ctx, user.Username, password)
	}
	return s.issue(user)
}

// rehash upgrades a hash made with older parameters. Failure keeps the old hash.
func (s *UserService) rehash(ctx context.Context, username, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.repo.UpdatePassword(ctx, username, hash)
	}
	if err != nil {
		s.logger.Warn("password_rehash_failed", slog.String("username", username), slog.String("error", err.Error()))
		return
	}
	s.logger.Info("password_rehashed", slog.String("username", username))
}

func (s *UserService) issue(user *model.User) (*LoginResult, error) {
	token, claims, err := s.sessions.Issue(user, s.now())
	if err != nil {
		return nil, err
	}
	s.logger.Info("session_issued", slog.String("username", user.Username), slog.String("jti", claims.ID))
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Register creates an account when registration is open and signs it in.
func (s *UserService) Register(ctx context.Context, username, password string, access []string) (*LoginResult, error) {
	if !s.allowRegistration {
		return nil, ErrRegistrationClosed
	}
	user, err := s.CreateUser(ctx, username, password, access)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser stores an account regardless of the registration setting.
func (s *UserService) CreateUser(ctx context.Context, username, password string, access []string) (*model.User, error) {
	groups := make([]string, 0, len(access))
	for _, g := range access {
		g = strings.TrimSpace(g)
		if g == "" || slices.Contains(groups, g) {
			continue
		}
		if !model.IsValidGroup(g) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAccessGroup, g)
		}
		groups = append(groups, g)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:  strings.TrimSpace(username),
		PassHash:  hash,
		Access:    groups,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user_created", slog.String("username", user.Username), slog.Any("access", user.Access))
	return user, nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *UserService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	ok, err := auth.VerifyPassword(oldPassword, user.PassHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, username, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("password_changed", slog.String("username", username))
	return nil
}

// Logout revokes the session's token until it would have expired.
func (s *UserService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil || session.TokenID == "" || s.revoker == nil {
		return nil
	}
	until := session.ExpiresAt
	if until.IsZero() {
		until = s.now().Add(s.sessions.TTL())
	}
	if err := s.revoker.RevokeSession(ctx, session.TokenID, until); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	s.logger.Info("session_revoked", slog.String("username", session.Username), slog.String("jti", session.TokenID))
	return nil
}

// Usernames lists every account name, used to pick payment participants.
func (s *UserService) Usernames(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListUsernames(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
