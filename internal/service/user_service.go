package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// UserService handles registration, credential checks and account administration
type UserService struct {
	store    *store.Store
	hasher   *PasswordHasher
	notifier notifier
	logger   *zap.Logger
	// dummySalt keeps lookups of unknown users as expensive as real ones
	dummySalt string
}

// NewUserService creates a new user service. publisher may be nil.
func NewUserService(store *store.Store, hasher *PasswordHasher, publisher EventPublisher) *UserService {
	logger := util.GetLogger()
	return &UserService{
		store:     store,
		hasher:    hasher,
		notifier:  notifier{publisher: publisher, logger: logger},
		logger:    logger,
		dummySalt: strings.Repeat("0", saltBytes*2),
	}
}

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// NewUser builds a user with a fresh salt and hashed password without storing it
func (s *UserService) NewUser(username, password, role, email string) (*models.User, error) {
	username = models.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidUser)
	}
	if role = strings.TrimSpace(role); role == "" {
		role = models.RoleCustomer
	}

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &models.User{
		Username:     username,
		PasswordHash: s.hasher.Hash(password, salt),
		Salt:         salt,
		Role:         role,
		Email:        strings.TrimSpace(email),
	}, nil
}

// Register creates an account. The username is normalized and must not exist yet.
func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Register")
	defer span.End()

	user, err := s.NewUser(req.Username, req.Password, req.Role, req.Email)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			s.logger.Info("Registration rejected, username exists", zap.String("username", user.Username))
			return nil, err
		}
		s.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	util.UsersRegisteredTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	s.notifier.userRegistered(ctx, user)
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong passwords
// both fail with ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "UserService.Authenticate")
	defer span.End()

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		util.AuthAttemptsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to look up user", zap.Error(err))
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.dummySalt, s.dummySalt)
		util.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.Salt, user.PasswordHash) {
		util.AuthAttemptsTotal.WithLabelValues("failure").Inc()
		s.logger.Info("Authentication failed", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	util.AuthAttemptsTotal.WithLabelValues("success").Inc()
	return user, nil
}

// ChangeRole sets the role of a user, returning the rows affected
func (s *UserService) ChangeRole(ctx context.Context, username, role string) (int64, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		return 0, fmt.Errorf("%w: role is required", ErrInvalidUser)
	}
	return s.store.UpdateUserRole(ctx, username, role)
}

// ChangeEmail sets the email of a user, returning the rows affected
func (s *UserService) ChangeEmail(ctx context.Context, username, email string) (int64, error) {
	return s.store.UpdateUserEmail(ctx, username, strings.TrimSpace(email))
}

// ChangePassword stores a new password under a newly generated salt
func (s *UserService) ChangePassword(ctx context.Context, username, password string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "UserService.ChangePassword")
	defer span.End()

	if password == "" {
		return 0, fmt.Errorf("%w: password is required", ErrInvalidUser)
	}

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return 0, fmt.Errorf("failed to generate salt: %w", err)
	}

	affected, err := s.store.UpdateUserPassword(ctx, username, s.hasher.Hash(password, salt), salt)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.logger.Info("Password changed", zap.String("username", models.NormalizeUsername(username)))
	}
	return affected, nil
}

// DeleteUser removes an account, returning the rows affected
func (s *UserService) DeleteUser(ctx context.Context, username string) (int64, error) {
	affected, err := s.store.DeleteUser(ctx, username)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.logger.Info("User deleted", zap.String("username", models.NormalizeUsername(username)))
	}
	return affected, nil
}

// GetUser retrieves a user by username
func (s *UserService) GetUser(ctx context.Context, username string) (*models.User, error) {
	return s.store.GetUserByUsername(ctx, username)
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}

func (s *UserService) Exists(ctx context.Context, username string) (bool, error) {
	return s.store.UserExists(ctx, username)
}

func (s *UserService) Role(ctx context.Context, username string) (string, error) {
	return s.store.GetUserRole(ctx, username)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.GetUsers(ctx)
}

func (s *UserService) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	return s.store.GetUsersByRole(ctx, role)
}

func (s *UserService) CountByRole(ctx context.Context, role string) (int, error) {
	return s.store.CountUsersByRole(ctx, role)
}

func (s *UserService) Roles(ctx context.Context) ([]string, error) {
	return s.store.GetRoles(ctx)
}

// RoleStats counts users per role, largest group first
func (s *UserService) RoleStats(ctx context.Context) ([]models.RoleStat, error) {
	return s.store.GetRoleStats(ctx)
}
