package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/database"
	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	defaultDashboardName = "Default Dashboard"
)

var (
	// ErrUserExists is returned when registering an email that is taken.
	ErrUserExists = errors.New("User with this email already exists") //nolint:staticcheck
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("Invalid credentials") //nolint:staticcheck
)

// Result is returned after a successful register or login.
type Result struct {
	User        *database.User
	AccessToken string
}

// Service handles registration, login and token validation.
type Service struct {
	db     database.DB
	tokens *TokenManager
}

// New creates an auth service.
func New(db database.DB, tokens *TokenManager) *Service {
	return &Service{db: db, tokens: tokens}
}

// Register creates a user with default display settings and dashboard.
func (s *Service) Register(ctx context.Context, email, password string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.db.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &database.User{
		Email:           email,
		Password:        string(hash),
		DisplaySettings: database.DefaultDisplaySettings(),
		Dashboards:      []database.Dashboard{{Name: defaultDashboardName, IsActive: true}},
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("User registered", "user_id", user.ID, "email", user.Email)
	return s.issue(user)
}

// Login verifies the credentials and issues a new token.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// ValidateToken returns the user behind a token, or nil if the token is
// invalid, expired or belongs to a deleted user.
func (s *Service) ValidateToken(ctx context.Context, token string) (*database.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}

	user, err := s.db.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	user.Password = ""
	return user, nil
}

func (s *Service) issue(user *database.User) (*Result, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &Result{User: user, AccessToken: token}, nil
}
