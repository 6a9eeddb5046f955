// Package authn is the pluggable HTTP authentication seam the sync server
// calls into before dispatching a request (spec §6 "authentication is
// assumed pluggable"). The default implementation adapts the teacher's
// internal/auth JWT TokenManager (golang-jwt/jwt/v5) to the
// {"error":"unauthorized","message":...} response body §6 requires; an
// end-to-end OAuth flow is an explicit non-goal (spec §9, supplemented
// from original_source/u1dbrepo's test_oauth_middleware.py).
package authn

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator is the seam internal/httpsync.Server calls on every
// incoming request. Authenticate returns a non-nil error to reject the
// request with a 401; the error's message is surfaced verbatim in the
// response body.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// Principal identifies the caller a request was authenticated as.
type Principal struct {
	Subject string
}

// AllowAll is a no-op Authenticator that accepts every request as an
// anonymous principal. Useful for local development and tests.
type AllowAll struct{}

func (AllowAll) Authenticate(*http.Request) (Principal, error) {
	return Principal{Subject: "anonymous"}, nil
}

// Claims is the JWT payload a JWTAuthenticator expects.
type Claims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates a bearer token from the Authorization header
// using an HMAC secret, adapted from the teacher's auth.TokenManager.
type JWTAuthenticator struct {
	secretKey     []byte
	tokenDuration time.Duration
}

// NewJWTAuthenticator returns a JWTAuthenticator signing/verifying with
// secretKey and issuing tokens valid for tokenDuration.
func NewJWTAuthenticator(secretKey string, tokenDuration time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{secretKey: []byte(secretKey), tokenDuration: tokenDuration}
}

// IssueToken mints a signed token for subject, mainly for tests and the
// syncdbctl CLI's issue-token command.
func (a *JWTAuthenticator) IssueToken(subject string) (string, error) {
	claims := Claims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secretKey)
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Principal{}, fmt.Errorf("missing authorization header")
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header {
		return Principal{}, fmt.Errorf("authorization header must use the Bearer scheme")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secretKey, nil
	})
	if err != nil {
		return Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, fmt.Errorf("invalid token")
	}
	return Principal{Subject: claims.Subject}, nil
}
