package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/sweet_shop/internal/events"
	"github.com/Skotchmaster/sweet_shop/internal/hash"
	"github.com/Skotchmaster/sweet_shop/internal/logging"
	"github.com/Skotchmaster/sweet_shop/internal/models"
	"github.com/Skotchmaster/sweet_shop/internal/repo"
	"github.com/Skotchmaster/sweet_shop/internal/tokens"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
)

const minPasswordLen = 6

type AuthService struct {
	Repo             *repo.GormRepo
	Tokens           *tokens.Issuer
	Events           events.Publisher
	AllowAdminSignup bool
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")
	req.Normalize()

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	role := models.RoleUser
	if models.Role(req.Role) == models.RoleAdmin {
		if s.AllowAdminSignup {
			role = models.RoleAdmin
		} else {
			l.Warn("register_admin_downgraded", "email", req.Email)
		}
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return nil, err
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUserEvents, user.ID.String(), events.Event{
		Type:   events.TypeUserRegistered,
		UserID: user.ID.String(),
		Name:   user.Name,
		At:     time.Now().UTC(),
	})
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*AuthResult, error) {
	req.Normalize()
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", req.Email)

	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUserEvents, user.ID.String(), events.Event{
		Type:   events.TypeUserLoggedIn,
		UserID: user.ID.String(),
		At:     time.Now().UTC(),
	})
	return res, nil
}

// Authenticate resolves a bearer token to the stored user. The role comes
// from the database, not from the token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.Tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	return user, nil
}

// CreateAdmin provisions an administrator regardless of AllowAdminSignup.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	req := transport.RegisterRequest{Name: name, Email: email, Password: password, Role: string(models.RoleAdmin)}
	req.Normalize()
	if err := validateRegistration(req); err != nil {
		return nil, err
	}
	return s.createUser(ctx, req.Name, req.Email, req.Password, models.RoleAdmin)
}

func (s *AuthService) createUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.create_user")

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 409, "reason", "user already exist", "email", email)
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, exp, err := s.Tokens.Sign(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func validateRegistration(req transport.RegisterRequest) error {
	if n := utf8.RuneCountInString(req.Name); n < 2 || n > 50 {
		return fmt.Errorf("%w: name must be between 2 and 50 characters", ErrValidation)
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || !strings.EqualFold(addr.Address, req.Email) {
		return fmt.Errorf("%w: email must be a valid address", ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	switch models.Role(req.Role) {
	case "", models.RoleUser, models.RoleAdmin:
	default:
		return fmt.Errorf("%w: role must be user or admin", ErrValidation)
	}
	return nil
}
