package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 5
	maxPasswordLength = 72 // bcrypt ignores anything past 72 bytes
	minFullNameLength = 3
	maxFullNameLength = 100
)

type userService struct {
	userRepo   UserRepository
	tokens     TokenIssuer
	bcryptCost int
}

// NewUserService creates a new user service.
// bcryptCost of 0 uses bcrypt.DefaultCost.
func NewUserService(userRepo UserRepository, tokens TokenIssuer, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
	}
}

// Register validates the input, hashes the password, stores the user and issues a token
func (s *userService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validateRegisterRequest(req); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.userRepo.Create(ctx, &User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		AvatarURL:    strings.TrimSpace(req.AvatarURL),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("[AUTH] user registered", "user_id", user.ID)
	return &AuthResponse{User: user, Token: token}, nil
}

// Login checks the credentials and issues a token
func (s *userService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Info("[AUTH] login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &AuthResponse{User: user, Token: token}, nil
}

// GetMe returns the authenticated user's account
func (s *userService) GetMe(ctx context.Context, userID string) (*User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserNotFound
	}
	return s.userRepo.GetByID(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterRequest(req RegisterRequest) error {
	email := strings.TrimSpace(req.Email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &InvalidFieldError{Field: "email", Reason: "must be a valid email address"}
	}

	if len(req.Password) < minPasswordLength {
		return &InvalidFieldError{Field: "password",
			Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	if len(req.Password) > maxPasswordLength {
		return &InvalidFieldError{Field: "password",
			Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordLength)}
	}

	fullName := strings.TrimSpace(req.FullName)
	if len([]rune(fullName)) < minFullNameLength {
		return &InvalidFieldError{Field: "fullName",
			Reason: fmt.Sprintf("must be at least %d characters", minFullNameLength)}
	}
	if len([]rune(fullName)) > maxFullNameLength {
		return &InvalidFieldError{Field: "fullName",
			Reason: fmt.Sprintf("must be at most %d characters", maxFullNameLength)}
	}

	return nil
}
