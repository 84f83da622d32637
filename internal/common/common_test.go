package common_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/astimpay-bridge/internal/common"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:4321"
	require.Equal(t, "10.0.0.9", common.ClientIP(r))

	r.Header.Set("X-Real-IP", "203.0.113.7")
	require.Equal(t, "203.0.113.7", common.ClientIP(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	require.Equal(t, "198.51.100.1", common.ClientIP(r))
}

func TestParseID(t *testing.T) {
	require.Equal(t, int64(100), common.ParseID(" 100 "))
	require.Equal(t, int64(0), common.ParseID("abc"))
	require.Equal(t, int64(0), common.ParseID(""))
}

func TestIdemMiddlewareBlocksReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idem := common.Idem{R: client, TTL: time.Minute}
	var calls int
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	do := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, do("abc"))
	require.Equal(t, http.StatusConflict, do("abc"))
	require.Equal(t, http.StatusOK, do("other"))
	// No header means no idempotency semantics.
	require.Equal(t, http.StatusOK, do(""))
	require.Equal(t, 3, calls)
}
