// Package middleware содержит HTTP middleware для сервиса учебного зала.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const staffIDKey contextKey = "staffID"

const (
	authCookieName = "staff_token"
	authCookieTTL  = 30 * 24 * time.Hour
)

var (
	errMalformedToken = errors.New("malformed token")
	errBadSignature   = errors.New("bad token signature")
	errTokenExpired   = errors.New("token expired")
)

// AuthMiddleware проверяет подписанный cookie сотрудника.
// Токен имеет вид "<staffID>.<expiresUnix>.<hmac>", срок действия проверяется на сервере.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом секрете генерируется случайный ключ,
// и выданные cookie перестают действовать после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("auth: read random key: " + err.Error())
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// Middleware пропускает запрос дальше только с действующим токеном и кладёт идентификатор сотрудника в контекст.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		staffID, err := a.verify(cookie.Value)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), staffIDKey, staffID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie выдаёт сотруднику cookie сроком на authCookieTTL.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, staffID int64) {
	expires := a.now().Add(authCookieTTL)

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    a.issue(staffID, expires),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) issue(staffID int64, expires time.Time) string {
	payload := strconv.FormatInt(staffID, 10) + "." + strconv.FormatInt(expires.Unix(), 10)
	return payload + "." + a.mac(payload)
}

func (a *AuthMiddleware) mac(payload string) string {
	m := hmac.New(sha256.New, a.secretKey)
	m.Write([]byte(payload))
	return hex.EncodeToString(m.Sum(nil))
}

func (a *AuthMiddleware) verify(token string) (int64, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return 0, errMalformedToken
	}
	payload, sig := token[:idx], token[idx+1:]

	if !hmac.Equal([]byte(sig), []byte(a.mac(payload))) {
		return 0, errBadSignature
	}

	idStr, expStr, ok := strings.Cut(payload, ".")
	if !ok {
		return 0, errMalformedToken
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errMalformedToken
	}
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return 0, errMalformedToken
	}
	if !a.now().Before(time.Unix(exp, 0)) {
		return 0, errTokenExpired
	}

	return id, nil
}

// GetStaffIDFromContext извлекает идентификатор сотрудника из контекста запроса.
func GetStaffIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(staffIDKey).(int64)
	return id, ok
}
