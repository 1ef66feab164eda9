package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestRecordStep(t *testing.T) {
	before := value(t, stepsTotal.WithLabelValues("HOLD"))

	RecordStep("HOLD", 0.5)

	assert.Equal(t, before+1, value(t, stepsTotal.WithLabelValues("HOLD")))
}

func TestRecordEpisode(t *testing.T) {
	RecordEpisode("hold", 1.25)

	assert.Equal(t, 1.25, value(t, episodeProfit.WithLabelValues("hold")))
}

func TestObserveNormalization(t *testing.T) {
	okBefore := value(t, normalizeColumns.WithLabelValues("ok"))
	failedBefore := value(t, normalizeColumns.WithLabelValues("failed"))

	ObserveNormalization(10*time.Millisecond, 15, 2)

	assert.Equal(t, okBefore+13, value(t, normalizeColumns.WithLabelValues("ok")))
	assert.Equal(t, failedBefore+2, value(t, normalizeColumns.WithLabelValues("failed")))
}

func TestMetricsHandler(t *testing.T) {
	RecordTrade("buy")

	rec := httptest.NewRecorder()
	NewMetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gym_env_trades_total")
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":9090", Addr(9090))
}
