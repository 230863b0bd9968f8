// Package middleware contains the HTTP middleware of the lottery service.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	// AuthCookieName is the session cookie set at sign-in.
	AuthCookieName = "id_token"
	authTokenTTL   = 7 * 24 * time.Hour
	authIssuer     = "elottery"
)

var errInvalidToken = errors.New("invalid session token")

// Session is the authenticated caller of a request.
type Session struct {
	UserID    int64
	Email     string
	Token     string
	ExpiresAt time.Time
}

// Revoker reports signed-out tokens.
type Revoker interface {
	IsRevoked(ctx context.Context, token string) bool
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware authenticates requests by a signed JWT carried in the
// session cookie or an Authorization bearer header.
type AuthMiddleware struct {
	secretKey []byte
	revoker   Revoker
	now       func() time.Time
}

// NewAuthMiddleware creates the middleware. An empty secret is replaced by a
// random key, which invalidates sessions on restart. revoker may be nil.
func NewAuthMiddleware(secret string, revoker Revoker) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		revoker:   revoker,
		now:       time.Now,
	}
}

// Middleware rejects requests without a valid session and puts the session
// into the request context.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		s, err := a.parse(token)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if a.revoker != nil && a.revoker.IsRevoked(r.Context(), token) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if c, err := r.Cookie(AuthCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetAuthCookie signs a session for the user and sets it as a cookie.
// The token is returned for clients that prefer the bearer header.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID int64, email string) (string, error) {
	now := a.now()
	expiresAt := now.Add(authTokenTTL)

	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    authIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return token, nil
}

// ClearAuthCookie expires the session cookie.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) parse(token string) (Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(authIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, errInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Session{}, errInvalidToken
	}

	return Session{
		UserID:    id,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// GetSessionFromContext returns the session stored by Middleware.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// GetUserIDFromContext returns the authenticated user id.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	s, ok := GetSessionFromContext(ctx)
	return s.UserID, ok
}

// WithSession stores s in ctx. Handlers under test use it to skip the middleware.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}
