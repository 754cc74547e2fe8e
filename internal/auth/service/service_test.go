package service

import (
	"context"
	"testing"
	"time"

	"arborlead_backend/internal/auth/repository"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type fakeStore struct {
	users map[string]repository.User
}

func (f *fakeStore) GetByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.users[email]
	if !ok {
		return repository.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return repository.User{}, apperr.NotFound("user not found")
}

type authConfig struct{}

func (authConfig) GetJWTAccessSecret() string        { return "test-secret" }
func (authConfig) GetAccessTokenTTL() time.Duration  { return 15 * time.Minute }

func TestSignInIssuesAccessToken(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	userID := uuid.New()
	store := &fakeStore{users: map[string]repository.User{
		"admin@example.com": {ID: userID, Email: "admin@example.com", PasswordHash: hash, Role: "admin", Active: true},
	}}
	svc := New(store, authConfig{}, logger.New("development"))

	tokenStr, user, err := svc.SignIn(context.Background(), "admin@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if user.ID != userID {
		t.Fatalf("user = %s, want %s", user.ID, userID)
	}

	parsed, err := jwt.Parse(tokenStr, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != userID.String() || claims["type"] != "access" || claims["role"] != "admin" {
		t.Fatalf("claims = %v", claims)
	}
}

func TestSignInRejectsBadCredentialsUniformly(t *testing.T) {
	hash, _ := HashPassword("correct horse battery")
	store := &fakeStore{users: map[string]repository.User{
		"admin@example.com": {ID: uuid.New(), Email: "admin@example.com", PasswordHash: hash, Role: "admin", Active: true},
	}}
	svc := New(store, authConfig{}, logger.New("development"))

	_, _, wrongPassword := svc.SignIn(context.Background(), "admin@example.com", "nope nope nope")
	_, _, unknownEmail := svc.SignIn(context.Background(), "ghost@example.com", "whatever whatever")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !apperr.Is(err, apperr.KindUnauthorized) {
			t.Fatalf("err = %v, want unauthorized", err)
		}
		if err.Error() != "invalid credentials" {
			t.Fatalf("message = %q, must not leak which check failed", err.Error())
		}
	}
}
