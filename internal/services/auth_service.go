package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"media-relay/config"
	relay_errors "media-relay/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates the dashboard operator and issues the access
// tokens the HTTP and websocket surfaces check. There is a single operator
// account, configured at startup; the password is hashed once and the
// plaintext is never retained.
type AuthService struct {
	username     string
	passwordHash string
	jwtSecret    []byte
	accessTTL    time.Duration
}

func NewAuthService(cfg *config.Config) (*AuthService, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin credentials are not configured")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	hash, err := hashPassword(cfg.AdminPassword)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		username:     cfg.AdminUsername,
		passwordHash: hash,
		jwtSecret:    []byte(cfg.JWTSecret),
		accessTTL:    time.Duration(cfg.JWTExpiryMin) * time.Minute,
	}, nil
}

type LoginInput struct {
	Username string
	Password string
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type AccessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Login(in LoginInput) (AuthResponse, error) {
	if in.Username == "" || in.Password == "" {
		return AuthResponse{}, relay_errors.ErrInvalidInput
	}

	// Compare the username in constant time so a probe cannot tell a wrong
	// username from a wrong password by timing.
	nameOK := subtle.ConstantTimeCompare([]byte(in.Username), []byte(s.username)) == 1
	if err := comparePassword(s.passwordHash, in.Password); err != nil || !nameOK {
		return AuthResponse{}, relay_errors.ErrUnauthorized
	}

	token, expiresIn, err := s.newAccessToken()
	if err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{AccessToken: token, ExpiresIn: expiresIn}, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, relay_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	return *claims, nil
}

func (s *AuthService) newAccessToken() (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)

	claims := AccessClaims{
		Username: s.username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

// HTTPStatus maps service errors onto response codes.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, relay_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, relay_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, relay_errors.ErrForbidden), errors.Is(err, relay_errors.ErrUserSuspended):
		return 403
	case errors.Is(err, relay_errors.ErrNotFound):
		return 404
	case errors.Is(err, relay_errors.ErrAlreadyExists):
		return 409
	case errors.Is(err, relay_errors.ErrTooLarge):
		return 413
	case errors.Is(err, relay_errors.ErrRateLimited):
		return 429
	case errors.Is(err, relay_errors.ErrQueueFull), errors.Is(err, relay_errors.ErrServiceUnavailable):
		return 503
	default:
		return 500
	}
}

type ctxKey string

var operatorKey ctxKey = "operator"

// WithOperatorContext records the authenticated operator on the request
// context so handlers can attribute admin actions in the audit log.
func WithOperatorContext(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, operatorKey, username)
}

func OperatorFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(operatorKey)
	if value == nil {
		return "", false
	}
	username, ok := value.(string)
	return username, ok
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
