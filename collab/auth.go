package collab

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// credential and session token mechanics.
//
// passwords are bcrypt hashed at signup and compared at login, never stored
// in the clear. Session tokens are HS256 jwts carrying the username, a
// session ulid and the issue time. Sessions do not expire by default.
// Set `TokenTtl` to opt into expiry enforcement.

type SessionSettings struct {
	// signing secret for session tokens
	JwtSecret []byte
	// zero means sessions never expire
	TokenTtl time.Duration

	BcryptCost int
}

func DefaultSessionSettings() *SessionSettings {
	return &SessionSettings{
		JwtSecret:  []byte("freehost-local-dev"),
		TokenTtl:   0,
		BcryptCost: bcrypt.DefaultCost,
	}
}

func HashPassword(password string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

func ComparePassword(passwordHash []byte, password string) bool {
	return bcrypt.CompareHashAndPassword(passwordHash, []byte(password)) == nil
}

// mints the opaque session token for a login. The embedded session id is a
// fresh ulid so two logins by one user never share a token.
func MintSessionToken(settings *SessionSettings, username string, createdAt time.Time) (string, error) {
	claims := gojwt.MapClaims{
		"username":   username,
		"session_id": NewId().String(),
		"iat":        createdAt.Unix(),
	}
	if 0 < settings.TokenTtl {
		claims["exp"] = createdAt.Add(settings.TokenTtl).Unix()
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString(settings.JwtSecret)
}

// verifies the signature and returns the bound username.
// expiry is enforced only when the token carries an exp claim.
func ParseSessionToken(settings *SessionSettings, tokenStr string) (string, error) {
	token, err := gojwt.Parse(
		tokenStr,
		func(token *gojwt.Token) (any, error) {
			if _, ok := token.Method.(*gojwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return settings.JwtSecret, nil
		},
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("session token: %w", ErrUnauthorized)
	}
	claims, ok := token.Claims.(gojwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("session token: %w", ErrUnauthorized)
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("session token: %w", ErrUnauthorized)
	}
	return username, nil
}
