package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	TokenCookieKey = "token"
	DefaultExp     = time.Hour * 24
)

var (
	ErrNoToken      = errors.New("no token in request")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey string

const userIdKey contextKey = "user-id"

func WithUserId(ctx context.Context, userId uuid.UUID) context.Context {
	return context.WithValue(ctx, userIdKey, userId)
}

func UserId(ctx context.Context) (uuid.UUID, bool) {
	userId, ok := ctx.Value(userIdKey).(uuid.UUID)
	return userId, ok && userId != uuid.Nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func IssueToken(key []byte, userId uuid.UUID, exp time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   userId.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(exp).Unix(),
	})

	return token.SignedString(key)
}

// VerifyToken checks the signature and expiry of a token and returns the
// user id it was issued for.
func VerifyToken(key []byte, tokenString string) (uuid.UUID, error) {
	var claims jwt.StandardClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userId, err := uuid.Parse(claims.Subject)
	if err != nil || userId == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	return userId, nil
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the token cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", ErrNoToken
		}
		return strings.TrimSpace(token), nil
	}

	cookie, err := r.Cookie(TokenCookieKey)
	if err != nil || cookie.Value == "" {
		return "", ErrNoToken
	}
	return cookie.Value, nil
}

func HashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func VerifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}
