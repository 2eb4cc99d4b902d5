package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sessionCookie(t *testing.T, a *SessionAuth, id int64) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	a.SetSessionCookie(w, id)
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no cookies set by SetSessionCookie")
	}
	return cookies[0]
}

func TestSessionAuth_WithValidCookie(t *testing.T) {
	a := NewSessionAuth("test-secret")

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := OperatorIDFromContext(r.Context())
		if !ok {
			t.Fatalf("operator id not in context")
		}
		if id != 42 {
			t.Fatalf("operator id from context = %d, want 42", id)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
	r.AddCookie(sessionCookie(t, a, 42))

	a.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestSessionAuth_Rejects(t *testing.T) {
	a := NewSessionAuth("test-secret")
	valid := sessionCookie(t, a, 7)

	expired := NewSessionAuth("test-secret")
	expired.now = func() time.Time { return time.Now().Add(-2 * SessionTTL) }

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "forged id", cookie: &http.Cookie{Name: sessionCookieName, Value: "8" + strings.TrimPrefix(valid.Value, "7")}},
		{name: "other secret", cookie: sessionCookie(t, NewSessionAuth("other"), 7)},
		{name: "expired", cookie: sessionCookie(t, expired, 7)},
		{name: "garbage", cookie: &http.Cookie{Name: sessionCookieName, Value: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			r := httptest.NewRequest(http.MethodGet, "/api/bills", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			a.Middleware(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}
