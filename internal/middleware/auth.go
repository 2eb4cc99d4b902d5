// Package middleware содержит HTTP middleware сервиса выставления счетов.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const operatorIDKey contextKey = "operatorID"

const (
	sessionCookieName = "billdesk_session"
	// SessionTTL задаёт срок действия сессии оператора (одна смена).
	SessionTTL = 12 * time.Hour
)

// SessionAuth проверяет сессию оператора по подписанному cookie вида "<id>.<expires>.<hmac>".
type SessionAuth struct {
	secretKey []byte
	now       func() time.Time
}

// NewSessionAuth создаёт SessionAuth. При пустом секрете генерируется случайный ключ,
// и сессии не переживают перезапуск процесса.
func NewSessionAuth(secret string) *SessionAuth {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionAuth{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware пропускает запрос дальше только с действующей сессией и кладёт идентификатор оператора в контекст.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		operatorID, ok := a.parse(cookie.Value)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie выдаёт оператору cookie сессии.
func (a *SessionAuth) SetSessionCookie(w http.ResponseWriter, operatorID int64) {
	expires := a.now().Add(SessionTTL)

	payload := strconv.FormatInt(operatorID, 10) + "." + strconv.FormatInt(expires.Unix(), 10)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    payload + "." + a.sign(payload),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *SessionAuth) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *SessionAuth) parse(value string) (int64, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return 0, false
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(a.sign(payload))) {
		return 0, false
	}

	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Unix() >= expires {
		return 0, false
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// OperatorIDFromContext извлекает идентификатор оператора из контекста запроса.
func OperatorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(operatorIDKey).(int64)
	return id, ok
}
