package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// AuthConfig is the token signing configuration, validated once at construction.
type AuthConfig struct {
	Secret   []byte
	TokenTTL time.Duration

	// Clock overrides time.Now for issuing and verifying tokens.
	Clock func() time.Time
}

// Claims is the session token payload.
type Claims struct {
	UserID int    `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// AuthService registers and authenticates users and issues session tokens.
type AuthService struct {
	repo     UserRepository
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// dummyHash is compared against when the email is unknown so that the
// response time of Login does not reveal whether an account exists.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return hash
})

func NewAuthService(repo UserRepository, cfg AuthConfig) (*AuthService, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: token signing secret is empty", ErrMisconfigured)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive", ErrMisconfigured)
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		repo:     repo,
		secret:   cfg.Secret,
		tokenTTL: cfg.TokenTTL,
		now:      now,
	}, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (types.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return types.User{}, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, fmt.Errorf("%w: password is too long", ErrValidation)
		}
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrDuplicateUser
		}
		return types.User{}, err
	}
	return user, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me loads the user behind a verified identity.
func (s *AuthService) Me(ctx context.Context, identity types.Identity) (types.User, error) {
	if identity.ID < 1 {
		return types.User{}, ErrUnauthorized
	}
	user, err := s.repo.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUnauthorized
		}
		return types.User{}, err
	}
	return user, nil
}

// IssueToken signs an HS256 session token for the user.
func (s *AuthService) IssueToken(user types.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.tokenTTL)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// VerifyToken checks the signature and expiry of a session token and
// returns the identity it carries. It does not consult the database.
func (s *AuthService) VerifyToken(tokenString string) (types.Identity, error) {
	if strings.TrimSpace(tokenString) == "" {
		return types.Identity{}, ErrMissingToken
	}

	claims := Claims{}
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.Identity{}, ErrExpiredToken
		}
		return types.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID < 1 || strings.TrimSpace(claims.Email) == "" {
		return types.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return types.Identity{ID: claims.UserID, Email: claims.Email}, nil
}
