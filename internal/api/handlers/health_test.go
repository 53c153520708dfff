package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hugh/c4p-portal/internal/api/handlers"
	"github.com/hugh/c4p-portal/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHealth(t *testing.T, rr *httptest.ResponseRecorder) handlers.HealthResponse {
	t.Helper()
	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthHandler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := handlers.NewHealthHandler(db, nil)

	t.Run("health", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeHealth(t, rr)
		assert.Equal(t, "ok", resp.Status)
		assert.NotEmpty(t, resp.Uptime)
	})

	t.Run("ready without redis", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeHealth(t, rr)
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "ok", resp.Services["database"])
		assert.NotContains(t, resp.Services, "redis")
	})
}

func TestHealthHandler_ReadyUnavailable(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Nothing listens on port 1.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	rr := httptest.NewRecorder()
	handlers.NewHealthHandler(db, rdb).Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	resp := decodeHealth(t, rr)
	assert.Equal(t, "unavailable", resp.Status)
	assert.Equal(t, "ok", resp.Services["database"])
	assert.Equal(t, "unavailable", resp.Services["redis"])
}
