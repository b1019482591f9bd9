package turn

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the process-wide turn counters and the tracer used to
// span each turn's agent loop. A nil *Metrics is safe to use — every
// method no-ops — so callers that don't care about observability can
// pass nil to New.
type Metrics struct {
	turnsTotal      prometheus.Counter
	turnsFailed     prometheus.Counter
	turnDuration    prometheus.Histogram
	fallbacksTotal  prometheus.Counter
	cookieLeaks     prometheus.Counter
	tracer          trace.Tracer
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide turn Metrics, registering its
// collectors with the default Prometheus registry exactly once
// (grounded on the teacher's internal/canvas.NewMetrics
// sync.Once-guarded singleton).
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			turnsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "amritacore_turns_total",
				Help: "Total number of chat turns started",
			}),
			turnsFailed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "amritacore_turns_failed_total",
				Help: "Total number of chat turns that ended in StateFailed",
			}),
			turnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "amritacore_turn_duration_seconds",
				Help:    "Wall-clock duration of one chat turn's agent loop",
				Buckets: prometheus.DefBuckets,
			}),
			fallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "amritacore_turn_fallbacks_total",
				Help: "Total number of FallbackEvent-triggered preset retries",
			}),
			cookieLeaks: promauto.NewCounter(prometheus.CounterOpts{
				Name: "amritacore_cookie_leaks_total",
				Help: "Total number of detected prompt-injection cookie leaks",
			}),
			tracer: otel.Tracer("github.com/AmritaBot/AmritaCore/internal/turn"),
		}
	})
	return metricsInstance
}

// startTurn opens a tracing span for one turn's agent loop and records
// its start, returning the span-carrying context and a function to call
// with the loop's terminal error once it finishes.
func (m *Metrics) startTurn(ctx context.Context, streamID, sessionID string) (context.Context, func(error)) {
	if m == nil {
		return ctx, func(error) {}
	}
	m.turnsTotal.Inc()
	start := time.Now()

	spanCtx, span := m.tracer.Start(ctx, "chat_turn",
		trace.WithAttributes(
			attribute.String("amritacore.stream_id", streamID),
			attribute.String("amritacore.session_id", sessionID),
		),
	)
	return spanCtx, func(err error) {
		m.turnDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.turnsFailed.Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (m *Metrics) recordFallback() {
	if m == nil {
		return
	}
	m.fallbacksTotal.Inc()
}

func (m *Metrics) recordCookieLeak() {
	if m == nil {
		return
	}
	m.cookieLeaks.Inc()
}
