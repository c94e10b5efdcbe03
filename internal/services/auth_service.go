package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"wellnest/internal/models"
	"wellnest/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token validation.
type AuthService struct {
	userRepo   repositories.UserRepository
	gate       *RoleGate
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		gate:       NewRoleGate(),
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenTTL,
	}
}

// RegisterInput is the data needed to open a buyer account.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// RegisterUser creates a buyer account. Other roles are only ever assigned out of band.
func (s *AuthService) RegisterUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleBuyer)
}

// EnsureUser creates the account with role unless the email is already registered.
// It is used to seed operator accounts at startup.
func (s *AuthService) EnsureUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	if existing, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return existing, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	return s.createUser(ctx, in, role)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	// Check if email already exists
	if existingUser, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil && existingUser != nil {
		return nil, fmt.Errorf("%w: '%s'", ErrEmailTaken, in.Email)
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    strings.TrimSpace(in.Email),
		Name:     strings.TrimSpace(in.Name),
		Phone:    strings.TrimSpace(in.Phone),
		Password: string(hashedPassword),
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// LoginUser authenticates a user and returns a JWT token if successful.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}

	// Compare the provided password with the hashed password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     now.Add(s.tokenDurat).Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return tokenString, user, nil
}

// ValidateToken parses and validates a JWT token, returning the caller it identifies.
func (s *AuthService) ValidateToken(tokenString string) (models.Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the alg is what we expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return models.Principal{}, fmt.Errorf("%w: invalid token: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Principal{}, fmt.Errorf("%w: invalid token", ErrInvalidCredentials)
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || !models.Role(role).Valid() {
		return models.Principal{}, fmt.Errorf("%w: invalid token claims", ErrInvalidCredentials)
	}
	return models.Principal{UserID: userID, Email: email, Role: models.Role(role)}, nil
}

// GetUser returns the account behind a validated token.
func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns every account. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, user models.Principal) ([]models.User, error) {
	if err := s.gate.Require(user, ManageUsers()); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}
