// Package service implements staff authentication: password sign-in and
// short-lived HMAC access tokens for admins and partners.
package service

import (
	"context"
	"time"

	"arborlead_backend/internal/auth/repository"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const accessTokenType = "access"

// Store is the persistence surface for authentication.
type Store interface {
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
}

// Service authenticates staff and issues access tokens.
type Service struct {
	repo Store
	cfg  config.AuthServiceConfig
	log  *logger.Logger
	now  func() time.Time
}

// New creates the auth service.
func New(repo Store, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, now: time.Now}
}

// SignIn verifies credentials and returns a signed access token. Bad email
// and bad password produce the same error.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (string, repository.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown email")
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plainPassword)); err != nil {
		s.log.AuthEvent("sign_in", email, false, "wrong password")
		return "", repository.User{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.signJWT(user)
	if err != nil {
		return "", repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return token, user, nil
}

// Me returns the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (repository.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) signJWT(user repository.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"type": accessTokenType,
		"role": user.Role,
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}

// HashPassword produces a bcrypt hash for seeding and account creation.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
