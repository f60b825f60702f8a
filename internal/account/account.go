// Package account registers customers and issues the bearer tokens that
// identify them to the chat endpoints.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"Name" validate:"required"`
	Email    string `json:"Email" validate:"required,email"`
	Password string `json:"Password" validate:"required,min=6"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"Email" validate:"required,email"`
	Password string `json:"Password" validate:"required"`
}

// Token is an issued bearer token.
type Token struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

// Claims are the token claims.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Config configures a Service.
type Config struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

// Service manages accounts stored in the users sheet.
type Service struct {
	store    store.Gateway
	secret   []byte
	ttl      time.Duration
	cost     int
	clock    model.Clock
	validate *validator.Validate
	logger   *logger.Logger
}

// NewService creates an account service.
func NewService(g store.Gateway, cfg Config, clock model.Clock, log *logger.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:    g,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		cost:     cfg.BcryptCost,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.OrNop(log).Named("account"),
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	req.Email = NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}

	if _, err := s.find(ctx, req.Email); err == nil {
		return model.User{}, ErrUserExists
	} else if !errors.Is(err, ErrInvalidCredentials) {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.Append(ctx, store.SheetUsers, store.Row{
		"Name":          req.Name,
		"Email":         req.Email,
		"Password_Hash": string(hash),
		"Created_At":    s.clock.Now().Format(model.StampLayout),
	}); err != nil {
		return model.User{}, fmt.Errorf("save user: %w", err)
	}

	s.logger.Info("user registered", zap.String("email", req.Email))
	return model.User{Name: req.Name, Email: req.Email}, nil
}

// Login checks credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Token, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return Token{}, ErrInvalidCredentials
	}
	row, err := s.find(ctx, req.Email)
	if err != nil {
		return Token{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.Get("Password_Hash")), []byte(req.Password)) != nil {
		return Token{}, ErrInvalidCredentials
	}

	tok, exp, err := s.issue(req.Email)
	if err != nil {
		return Token{}, err
	}
	return Token{
		Token:     tok,
		ExpiresAt: exp,
		User:      model.User{Name: row.Get("Name"), Email: req.Email},
	}, nil
}

func (s *Service) issue(email string) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify returns the email a token was issued for.
func (s *Service) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.clock.Now() }))
	if err != nil || !parsed.Valid || claims.Email == "" {
		return "", ErrInvalidToken
	}
	return claims.Email, nil
}

// find returns the users row for email, or ErrInvalidCredentials when
// there is none.
func (s *Service) find(ctx context.Context, email string) (store.Row, error) {
	rows, err := s.store.Fetch(ctx, store.SheetUsers)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, r := range rows {
		if NormalizeEmail(r.Get("Email")) == email {
			return r, nil
		}
	}
	return nil, ErrInvalidCredentials
}
