// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/agriqcert/agriqcert-backend/internal/errs"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository"
	"github.com/agriqcert/agriqcert-backend/internal/session"
	"github.com/agriqcert/agriqcert-backend/internal/utils"
)

type AuthService struct {
	users    repository.UserRepository
	sessions session.Store
	ttl      time.Duration
	now      func() time.Time
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Password string `json:"password" validate:"required,bcrypt_len"`
	Role     string `json:"role" validate:"required,role"`
}

type AuthResponse struct {
	Token string             `json:"token"`
	User  models.UserProfile `json:"user"`
}

func NewAuthService(users repository.UserRepository, sessions session.Store, ttl time.Duration) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	// Check if user already exists
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: username or email already registered", errs.ErrConflict)
	}

	wallet, err := utils.GenerateWalletAddress()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet address: %w", err)
	}

	user := &models.User{
		Username:      req.Username,
		Role:          models.Role(req.Role),
		WalletAddress: wallet,
	}
	if req.Email != "" {
		email := strings.ToLower(req.Email)
		user.Email = &email
	}

	// Set password
	if err := user.SetPassword(req.Password); err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password exceeds 72 bytes", errs.ErrValidation)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Save user; a concurrent registration surfaces as a unique violation
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, fmt.Errorf("%w: username or email already registered", errs.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError(err)
	}

	// Unknown user and wrong password look the same to the caller
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthenticated
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, errs.ErrUnauthenticated
	}

	return s.issue(ctx, user)
}

// Logout revokes the session behind the caller's token.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if err := s.sessions.Revoke(ctx, sess.ID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	logrus.WithField("user_id", sess.UserID).Info("User logged out")
	return nil
}

func (s *AuthService) Me(ctx context.Context, sess *session.Session) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUnauthenticated
		}
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// Authenticate verifies the token signature and that its session is still
// live in the session store.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnauthenticated, err)
	}

	sess, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: session expired or revoked", errs.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Expired(s.now()) || sess.UserID.String() != claims.UserID {
		return nil, fmt.Errorf("%w: session expired or revoked", errs.ErrUnauthenticated)
	}
	return sess, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	sess := session.Session{
		ID:        session.NewID(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      string(user.Role),
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := utils.GenerateJWT(sess.ID, user.ID, user.Username, string(user.Role), sess.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{Token: token, User: user.Profile()}, nil
}

// ActorFromSession converts an authenticated session into a service actor.
func ActorFromSession(sess *session.Session) Actor {
	return Actor{
		ID:       sess.UserID,
		Username: sess.Username,
		Role:     models.Role(sess.Role),
	}
}
