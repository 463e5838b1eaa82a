package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long a login stays valid when none is configured
const DefaultSessionTTL = 24 * time.Hour

// AuthService issues and resolves login sessions
type AuthService struct {
	users    *UserService
	sessions SessionStore
	ttl      time.Duration
	logger   *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users *UserService, sessions SessionStore, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates the user and stores a new session
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Session, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		Token:     uuid.New().String(),
		Username:  user.Username,
		Role:      user.Role,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.sessions.SaveSession(ctx, session, s.ttl); err != nil {
		s.logger.Error("Failed to save session", zap.String("username", user.Username), zap.Error(err))
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("User logged in", zap.String("username", user.Username))
	return session, nil
}

// Resolve returns the session behind a token with the user's current role
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	// the account may have been deleted or had its role changed since login
	role, err := s.users.Role(ctx, session.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.logger.Warn("Failed to delete orphaned session", zap.String("username", session.Username), zap.Error(err))
		}
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user role: %w", err)
	}
	session.Role = role
	return session, nil
}

// Logout deletes a session
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrSessionNotFound
	}
	return s.sessions.DeleteSession(ctx, token)
}

// RequireAdmin fails with ErrForbidden unless the session has the admin role
func RequireAdmin(session *models.Session) error {
	if session == nil || !session.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
