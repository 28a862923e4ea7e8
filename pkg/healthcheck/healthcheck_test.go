package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func staticChecker(status Status, message string) *CustomChecker {
	return NewCustomChecker(func(ctx context.Context) (Status, string, interface{}) {
		return status, message, nil
	})
}

func TestCheck_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"no checkers", nil, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("mealplanner", "test", zaptest.NewLogger(t))
			for i, s := range tt.statuses {
				hc.Register(string(rune('a'+i)), staticChecker(s, ""))
			}

			resp := hc.Check(context.Background())

			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.statuses))
			for i, c := range resp.Checks {
				assert.Equal(t, string(rune('a'+i)), c.Name)
			}
		})
	}
}

func TestCheck_CachesResult(t *testing.T) {
	var calls atomic.Int32
	hc := New("mealplanner", "test", zaptest.NewLogger(t))
	hc.Register("counter", NewCustomChecker(func(ctx context.Context) (Status, string, interface{}) {
		calls.Add(1)
		return StatusHealthy, "", nil
	}))

	hc.Check(context.Background())
	hc.Check(context.Background())
	assert.Equal(t, int32(1), calls.Load())

	hc.SetCacheTTL(0)
	hc.Check(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegister_InvalidatesCache(t *testing.T) {
	hc := New("mealplanner", "test", zaptest.NewLogger(t))
	hc.Register("a", staticChecker(StatusHealthy, ""))
	require.Equal(t, StatusHealthy, hc.Check(context.Background()).Status)

	hc.Register("b", staticChecker(StatusUnhealthy, "down"))

	assert.Equal(t, StatusUnhealthy, hc.Check(context.Background()).Status)
}

func TestHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		wantHealth int
		wantReady  int
	}{
		{"healthy", StatusHealthy, http.StatusOK, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusOK, http.StatusOK},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New("mealplanner", "1.2.3", zaptest.NewLogger(t))
			hc.Register("ai", staticChecker(tt.status, "msg"))

			rec := httptest.NewRecorder()
			hc.Handler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantHealth, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body["status"])
			assert.Equal(t, "mealplanner", body["service"])
			assert.Equal(t, "1.2.3", body["version"])
			assert.Contains(t, body, "total_duration_ms")
			checks := body["checks"].([]interface{})
			require.Len(t, checks, 1)
			assert.Equal(t, "ai", checks[0].(map[string]interface{})["name"])
			assert.Contains(t, checks[0], "duration_ms")

			rec = httptest.NewRecorder()
			hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.wantReady, rec.Code)
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := New("mealplanner", "test", zaptest.NewLogger(t))
	hc.Register("db", staticChecker(StatusUnhealthy, "down"))

	rec := httptest.NewRecorder()
	hc.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alive"`)
}

func TestCheck_HonoursTimeout(t *testing.T) {
	hc := New("mealplanner", "test", zaptest.NewLogger(t))
	hc.timeout = 20 * time.Millisecond
	hc.Register("slow", NewCustomChecker(func(ctx context.Context) (Status, string, interface{}) {
		<-ctx.Done()
		return StatusUnhealthy, ctx.Err().Error(), nil
	}))

	resp := hc.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), resp.Checks[0].Message)
}
