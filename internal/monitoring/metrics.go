package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Simulator metrics
	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_env_steps_total",
			Help: "Total number of simulator steps by action",
		},
		[]string{"action"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_env_trades_total",
			Help: "Total number of position transitions",
		},
		[]string{"side"},
	)

	stepReward = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gym_env_step_reward",
			Help:    "Distribution of per-step rewards",
			Buckets: []float64{-50, -10, -5, -1, -0.1, 0, 0.1, 1, 5, 10, 50},
		},
	)

	episodesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gym_env_episodes_total",
			Help: "Total number of completed episodes",
		},
	)

	episodeProfit = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gym_env_episode_total_profit",
			Help: "Total profit factor of the last completed episode",
		},
		[]string{"policy"},
	)

	// Feature pipeline metrics
	normalizeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gym_env_normalize_duration_seconds",
			Help:    "Time spent normalizing a feature table",
			Buckets: prometheus.DefBuckets,
		},
	)

	normalizeColumns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_env_normalized_columns_total",
			Help: "Columns processed by the normalizer",
		},
		[]string{"status"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gym_env_errors_total",
			Help: "Total number of errors",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(stepsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(stepReward)
	prometheus.MustRegister(episodesTotal)
	prometheus.MustRegister(episodeProfit)
	prometheus.MustRegister(normalizeDuration)
	prometheus.MustRegister(normalizeColumns)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordStep records one simulator step
func RecordStep(action string, reward float64) {
	stepsTotal.WithLabelValues(action).Inc()
	stepReward.Observe(reward)
}

// RecordTrade records a position transition ("buy" opens, "sell" closes)
func RecordTrade(side string) {
	tradesTotal.WithLabelValues(side).Inc()
}

// RecordEpisode records a completed episode
func RecordEpisode(policy string, totalProfit float64) {
	episodesTotal.Inc()
	episodeProfit.WithLabelValues(policy).Set(totalProfit)
}

// ObserveNormalization records one normalizer run
func ObserveNormalization(d time.Duration, columns, failed int) {
	normalizeDuration.Observe(d.Seconds())
	normalizeColumns.WithLabelValues("ok").Add(float64(columns - failed))
	if failed > 0 {
		normalizeColumns.WithLabelValues("failed").Add(float64(failed))
	}
}

// RecordError records an error metric
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}

// Addr formats a listen address from a port
func Addr(port int) string {
	return ":" + strconv.Itoa(port)
}
