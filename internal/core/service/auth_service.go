package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

// AuthService authenticates console operators. Operator accounts live in
// the console's own store; field staff accounts live in the identity
// platform and never pass through here.
type AuthService struct {
	repo      ports.OperatorRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(repo ports.OperatorRepository, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Operator, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	operator, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(operator)
	if err != nil {
		return "", nil, err
	}

	return token, operator, nil
}

func (s *AuthService) generateToken(operator *domain.Operator) (string, error) {
	claims := jwt.MapClaims{
		"sub":   operator.ID,
		"email": operator.Email,
		"role":  operator.Role,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
