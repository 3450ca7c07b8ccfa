package service

import (
	"context"
	"time"

	"github.com/paycore/payroll-backend/internal/auth/jwt"
	"github.com/paycore/payroll-backend/internal/auth/repository"
	"github.com/paycore/payroll-backend/pkg/actor"
	"github.com/paycore/payroll-backend/pkg/errors"
	"github.com/paycore/payroll-backend/pkg/logger"
	"github.com/paycore/payroll-backend/pkg/validation"
	"golang.org/x/crypto/bcrypt"
)

// Clock resolves the current trusted time.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// AuthService handles authentication and user administration
type AuthService struct {
	userRepo *repository.UserRepository
	jwtMgr   *jwt.Manager
	clock    Clock
	logger   *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, jwtMgr *jwt.Manager, clock Clock, log *logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwtMgr:   jwtMgr,
		clock:    clock,
		logger:   log.WithComponent("auth"),
	}
}

// LoginResult carries a successful login outcome.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn().Str("username", username).Msg("login failed: unknown user")
			return nil, errors.InvalidCredentials()
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn().Str("username", username).Msg("login failed: bad password")
		return nil, errors.InvalidCredentials()
	}

	token, expiresAt, err := s.jwtMgr.Generate(user.Username, user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", user.Role).Msg("login succeeded")

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// AddUser creates a new user account. Administrator only.
func (s *AuthService) AddUser(ctx context.Context, username, password, role string) (*repository.User, error) {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	if !validation.IsValidName(username) {
		return nil, errors.Validation(map[string]string{"username": "may only contain letters and digits"})
	}
	if len(password) < 6 {
		return nil, errors.Validation(map[string]string{"password": "must be at least 6 characters"})
	}
	if role != actor.RoleAdmin && role != actor.RoleOperator {
		return nil, errors.Validation(map[string]string{"role": "must be admin or operator"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal("failed to hash password")
	}

	user := &repository.User{
		Username:  username,
		Password:  string(hash),
		Role:      role,
		CreatedAt: s.clock.Now(ctx).Format("2006-01-02 15:04:05"),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", role).Msg("user added")
	return user, nil
}

// DeleteUser removes a user account. Administrator only; the acting
// administrator cannot delete their own account.
func (s *AuthService) DeleteUser(ctx context.Context, username string) error {
	act, err := actor.RequireAdmin(ctx)
	if err != nil {
		return err
	}
	if act.Username == username {
		return errors.BadRequest("cannot delete the currently logged in user")
	}

	if err := s.userRepo.Delete(ctx, username); err != nil {
		return err
	}

	s.logger.Info().Str("username", username).Msg("user deleted")
	return nil
}

// ListUsers returns all user accounts. Administrator only.
func (s *AuthService) ListUsers(ctx context.Context) ([]*repository.User, error) {
	if _, err := actor.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}
