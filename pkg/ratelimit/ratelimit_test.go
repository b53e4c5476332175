package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAllowWithinWindow(t *testing.T) {
	req := require.New(t)
	l := New(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		req.True(l.allow("10.0.0.1", now))
	}
	req.False(l.allow("10.0.0.1", now))

	// Other clients have their own budget.
	req.True(l.allow("10.0.0.2", now))
}

func TestWindowResets(t *testing.T) {
	req := require.New(t)
	l := New(1, time.Minute)
	now := time.Now()

	req.True(l.allow("10.0.0.1", now))
	req.False(l.allow("10.0.0.1", now))
	req.True(l.allow("10.0.0.1", now.Add(2*time.Minute)))
}

func TestMiddlewareReturns429(t *testing.T) {
	req := require.New(t)
	l := New(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.168.1.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	req.Equal(http.StatusOK, do())
	req.Equal(http.StatusTooManyRequests, do())
}
