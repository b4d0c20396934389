package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stockflow/internal/common"
	"stockflow/internal/logging"
	"stockflow/internal/tenancy"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		lines = append(lines, entry)
	}
	return lines
}

func TestRequestLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Production: true, Output: &buf})

	e := echo.New()
	e.Use(RequestID(), RequestLogger(logger))
	e.GET("/ping", func(c echo.Context) error {
		logger.InfoContext(c.Request().Context(), "handled")
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))

	lines := logLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "handled", lines[0]["msg"])
	assert.Equal(t, "req-123", lines[0]["request_id"])
	assert.Equal(t, "request", lines[1]["msg"])
	assert.Equal(t, "/ping", lines[1]["path"])
	assert.EqualValues(t, http.StatusNoContent, lines[1]["status"])
}

func TestAuditRecordsWritesOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Production: true, Output: &buf})

	e := echo.New()
	withTenant := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, slot := tenancy.NewContext(c.Request().Context())
			slot.Set("acme")
			ctx = common.WithPrincipal(ctx, &common.Principal{Username: "alice"})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/products", ok, withTenant, Audit(logger))
	e.POST("/api/products", ok, withTenant, Audit(logger))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Empty(t, buf.String())

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/products", nil))
	lines := logLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "audit", lines[0]["msg"])
	assert.Equal(t, "POST /api/products", lines[0]["action"])
	assert.Equal(t, "alice", lines[0]["user"])
	assert.Equal(t, "acme", lines[0]["tenant"])
}
