package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// expvar maps are process-global, so a single updater instance covers
// every case here.
func TestStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.Run()
	defer su.Stop()

	su.RegisterMetric("TestCounter")

	su.Incr("TestCounter")
	su.Incr("TestCounter")
	su.Decr("TestCounter")

	assert.Eventually(t, func() bool {
		return su.vars.Get("TestCounter").String() == "1"
	}, time.Second, 10*time.Millisecond, "expected counter to settle at 1")

	req := httptest.NewRequest(http.MethodGet, "/debug/vars", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "expected HTTP 200")

	var data map[string]any
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data), "expected JSON metrics")
	assert.Equal(t, float64(1), data["TestCounter"], "expected counter value in the handler output")
	assert.Contains(t, data, "Uptime", "expected the uptime metric")
}
