package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/habibshaikh14/drivesoft-final-round/config"
	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
)

// ErrInvalidCredentials is returned on unknown username or wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidToken is returned when a JWT fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService issues and verifies the HS256 JWTs protecting the account API.
type AuthService struct {
	users         repository.UserRepository
	secretKey     []byte
	issuer        string
	tokenLifetime time.Duration
	logger        *zap.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, cfg *config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:         users,
		secretKey:     []byte(cfg.SecretKey),
		issuer:        cfg.Issuer,
		tokenLifetime: cfg.TokenLifetime,
		logger:        logger,
	}
}

// Login verifies the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.Username,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("User logged in", zap.String("username", user.Username))
	return token, nil
}

// ValidateToken verifies a token and returns the username it was issued to.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// EnsureBootstrapUser creates the configured initial user when it does not
// exist yet, so a fresh deployment has a way to log in.
func (s *AuthService) EnsureBootstrapUser(ctx context.Context, username, password string) error {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash bootstrap password: %w", err)
	}

	if err := s.users.Create(ctx, &entity.User{
		Username:     username,
		PasswordHash: string(hash),
	}); err != nil {
		return err
	}

	s.logger.Info("Bootstrap user created", zap.String("username", username))
	return nil
}
