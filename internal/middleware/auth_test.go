package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type revokedSet map[string]bool

func (s revokedSet) IsRevoked(ctx context.Context, token string) bool { return s[token] }

func signIn(t *testing.T, m *AuthMiddleware, userID int64) (*http.Cookie, string) {
	t.Helper()
	w := httptest.NewRecorder()
	token, err := m.SetAuthCookie(w, userID, "buyer@example.com")
	if err != nil {
		t.Fatalf("SetAuthCookie: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetAuthCookie")
	}
	if cookies[0].Name != AuthCookieName || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookie: %+v", cookies[0])
	}
	return cookies[0], token
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)
	cookie, _ := signIn(t, m, 42)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := GetUserIDFromContext(r.Context())
		if !ok || id != 42 {
			t.Fatalf("user id from context = %d, %v; want 42", id, ok)
		}
		s, _ := GetSessionFromContext(r.Context())
		if s.Email != "buyer@example.com" {
			t.Fatalf("email = %q", s.Email)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.AddCookie(cookie)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_WithBearerHeader(t *testing.T) {
	m := NewAuthMiddleware("test-secret", nil)
	_, token := signIn(t, m, 7)

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { nextCalled = true })

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret", revokedSet{})
	cookie, token := signIn(t, m, 42)

	foreign := NewAuthMiddleware("other-secret", nil)
	foreignCookie, _ := signIn(t, foreign, 42)

	expiring := NewAuthMiddleware("test-secret", nil)
	expiring.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expiredCookie, _ := signIn(t, expiring, 42)

	revoked := NewAuthMiddleware("test-secret", revokedSet{token: true})

	tests := []struct {
		name   string
		m      *AuthMiddleware
		cookie *http.Cookie
	}{
		{name: "no cookie", m: m},
		{name: "garbage", m: m, cookie: &http.Cookie{Name: AuthCookieName, Value: "42.deadbeef"}},
		{name: "foreign signature", m: m, cookie: foreignCookie},
		{name: "expired", m: m, cookie: expiredCookie},
		{name: "revoked", m: revoked, cookie: cookie},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			tt.m.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestClearAuthCookie(t *testing.T) {
	w := httptest.NewRecorder()
	NewAuthMiddleware("s", nil).ClearAuthCookie(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cookies)
	}
}

func TestRequireOperator(t *testing.T) {
	tests := []struct {
		name string
		key  string
		sent string
		want int
	}{
		{name: "matching key", key: "op", sent: "op", want: http.StatusOK},
		{name: "wrong key", key: "op", sent: "nope", want: http.StatusForbidden},
		{name: "missing header", key: "op", want: http.StatusForbidden},
		{name: "unconfigured", key: "", sent: "", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireOperator(tt.key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			r := httptest.NewRequest(http.MethodPost, "/api/draws/current/run", nil)
			if tt.sent != "" {
				r.Header.Set(OperatorHeader, tt.sent)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
