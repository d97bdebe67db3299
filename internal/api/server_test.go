package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minischeduler/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		GinMode:          gin.TestMode,
		StorageDriver:    config.StorageDriverMemory,
		ScheduleTimeZone: "UTC",
		MonthlyRule:      config.MonthlyRuleActive,
		MetricsEnabled:   true,
	}
}

func TestNewServerMemory(t *testing.T) {
	s, err := NewServer(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer s.Cleanup()

	w := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.StorageDriverMemory, body["storage"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, err := NewServer(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer s.Cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/users",
		strings.NewReader(`{"email":"a@example.com","password":"password123","full_name":"A","role":"user"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `minischeduler_http_requests_total{method="POST",route="/api/users",status="201"} 1`)
}

func TestUnknownStorageDriver(t *testing.T) {
	cfg := memoryConfig()
	cfg.StorageDriver = "sqlite"

	_, err := NewServer(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown storage driver")
}
