package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHealthReportsDatabaseState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	Register(r, func(context.Context) error { return nil }, "")
	w := get(r, "/api/v1/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	r = gin.New()
	Register(r, func(context.Context) error { return errors.New("dial tcp: refused") }, "")
	w = get(r, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	Register(r, nil, "")

	w := get(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	assert.Equal(t, http.StatusNotFound, get(r, "/logs?token=x").Code)
}

func TestLogsHandlerRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "api.log")
	require.NoError(t, os.WriteFile(path, []byte("line one\n"), 0o600))

	r := gin.New()
	r.GET("/logs", logsHandler("s3cret", path))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/logs").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/logs?token=wrong").Code)

	w := get(r, "/logs?token=s3cret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "line one\n", w.Body.String())
}
