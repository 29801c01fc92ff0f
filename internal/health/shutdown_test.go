package health_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/health"
)

// The readiness gate must flip to 503 the moment shutdown begins, before the
// dependency probes are even consulted, so load balancers stop routing new
// cart traffic to a draining instance.
func TestReadinessGateDuringShutdown(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}}
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)

	health.SetReady(true)
	before := httptest.NewRecorder()
	handler.Ready(before, req)
	require.Equal(t, http.StatusOK, before.Code)

	health.SetReady(false)
	during := httptest.NewRecorder()
	handler.Ready(during, req)
	require.Equal(t, http.StatusServiceUnavailable, during.Code)
	require.Contains(t, during.Body.String(), "shutting down")

	health.SetReady(true)
}
