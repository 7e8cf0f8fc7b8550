// Package service: AuthService checks credentials against the user
// directory, issues JWT access tokens and hashes passwords.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/port"
)

var authTracer = otel.Tracer("service/auth")

// MsgInvalidCredentials is returned for every failed sign-in.
const MsgInvalidCredentials = "Invalid credentials"

// AuthConfig configures token signing and hashing.
type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	BcryptCost int // zero means bcrypt.DefaultCost
}

// AuthService orchestrates sign-in and token validation.
type AuthService struct {
	store     port.UserStore
	jwtSecret []byte
	accessTTL time.Duration
	cost      int
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.UserStore, cfg AuthConfig, logger *zap.Logger) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		store:     store,
		jwtSecret: []byte(cfg.JWTSecret),
		accessTTL: cfg.AccessTTL,
		cost:      cost,
		logger:    logger,
	}
}

// ============================================================
// Login: POST /api/users {action:"login"}
// ============================================================

// Login matches identifier against username, email or SIP talk id and
// verifies the password. Every failure is the same ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, &domain.ErrUnauthorized{Message: MsgInvalidCredentials}
	}

	candidates, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	for _, rec := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(req.Password)) != nil {
			continue
		}
		token, err := s.signAccessToken(&rec.User)
		if err != nil {
			return nil, fmt.Errorf("sign access token: %w", err)
		}
		s.logger.Info("user signed in",
			zap.Int64("user_id", rec.User.ID),
			zap.String("role", string(rec.User.Role)),
		)
		return &domain.LoginResponse{
			User:      rec.User.Public(),
			Token:     token,
			ExpiresIn: int(s.accessTTL.Seconds()),
		}, nil
	}

	s.logger.Warn("login: invalid credentials", zap.Int("candidates", len(candidates)))
	return nil, &domain.ErrUnauthorized{Message: MsgInvalidCredentials}
}

// HashPassword returns the bcrypt hash stored in the directory.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ============================================================
// ValidateToken: used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject.
func (c *JWTClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token"}
	}
	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token type"}
	}
	if _, err := claims.UserID(); err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token subject"}
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(u *domain.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Role: string(u.Role),
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "lynix-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
