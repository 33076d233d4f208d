package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 2)

	calls := 0
	h := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/staff/login", nil))
		codes = append(codes, rec.Result().StatusCode)
	}

	if calls != 2 {
		t.Fatalf("next called %d times, want 2", calls)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third status = %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}
