// Package telemetry provides Prometheus metrics, run correlation ids and
// tracing helpers. The bot is a one-shot process, so metrics are pushed to a
// Pushgateway at the end of a run instead of being scraped.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	once sync.Once

	// Counters
	PostsSucceeded      *prometheus.CounterVec
	PostsFailed         *prometheus.CounterVec
	ComposeDegradations *prometheus.CounterVec
	CadenceDecisions    *prometheus.CounterVec
	BookLookups         *prometheus.CounterVec

	// Histograms (seconds)
	PublishDuration *prometheus.HistogramVec

	// Gauges
	CandidatesGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		PostsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{Name: "spectacles_posts_succeeded_total", Help: "Posts published, by platform"}, []string{"platform"})
		PostsFailed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "spectacles_posts_failed_total", Help: "Posts that failed, by platform and error class"}, []string{"platform", "class"})
		ComposeDegradations = promauto.NewCounterVec(prometheus.CounterOpts{Name: "spectacles_compose_degradations_total", Help: "Messages that fell back to a shorter tier"}, []string{"tier"})
		CadenceDecisions = promauto.NewCounterVec(prometheus.CounterOpts{Name: "spectacles_cadence_decisions_total", Help: "Cadence gate outcomes"}, []string{"decision"})
		BookLookups = promauto.NewCounterVec(prometheus.CounterOpts{Name: "spectacles_book_lookups_total", Help: "Book catalog lookups by result"}, []string{"result"})
		PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "spectacles_publish_duration_seconds", Help: "Publish call duration seconds", Buckets: prometheus.DefBuckets}, []string{"platform"})
		CandidatesGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "spectacles_candidates", Help: "Unposted performances found for the target date"})
	})
}

// RecordDegradation counts a composer fallback to tier.
func RecordDegradation(tier string) {
	if ComposeDegradations != nil {
		ComposeDegradations.WithLabelValues(tier).Inc()
	}
}

// RecordCadence counts a cadence gate decision.
func RecordCadence(post bool) {
	if CadenceDecisions == nil {
		return
	}
	if post {
		CadenceDecisions.WithLabelValues("post").Inc()
	} else {
		CadenceDecisions.WithLabelValues("wait").Inc()
	}
}

// RecordBookLookup counts a catalog lookup outcome (hit, miss, cached, error).
func RecordBookLookup(result string) {
	if BookLookups != nil {
		BookLookups.WithLabelValues(result).Inc()
	}
}

// RecordPost counts a publish attempt; class is ignored on success.
func RecordPost(platform string, ok bool, class string, d time.Duration) {
	if PublishDuration != nil {
		PublishDuration.WithLabelValues(platform).Observe(d.Seconds())
	}
	if ok {
		if PostsSucceeded != nil {
			PostsSucceeded.WithLabelValues(platform).Inc()
		}
		return
	}
	if PostsFailed != nil {
		PostsFailed.WithLabelValues(platform, class).Inc()
	}
}

// SetCandidates records how many performances are waiting.
func SetCandidates(n int) {
	if CandidatesGauge != nil {
		CandidatesGauge.Set(float64(n))
	}
}

// Push sends the default registry to a Pushgateway. An empty url is a no-op.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	slog.Debug("metrics pushed", slog.String("url", url), slog.String("job", job))
	return nil
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// NewRunContext returns ctx carrying a fresh run id, and the id.
func NewRunContext(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithCorrelation(ctx, id), id
}

// WithCorrelation returns a new context embedding correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}
