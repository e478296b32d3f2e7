package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report generation activity.
type Metrics struct {
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	inFlight      prometheus.Gauge
	queueDepth    prometheus.Gauge
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Callers supply a fresh registry when unique metric names are required (for
// example in tests). Registration errors other than duplicate registration
// panic, mirroring the promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daily_story",
			Subsystem: "generator",
			Name:      "cycles_total",
			Help:      "Total number of completed generation cycles by outcome.",
		},
		[]string{"outcome"},
	)
	cycleDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "daily_story",
			Subsystem: "generator",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of a full generation cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daily_story",
			Subsystem: "generator",
			Name:      "cycles_in_flight",
			Help:      "Number of generation cycles currently executing (0 or 1).",
		},
	)
	queueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "daily_story",
			Subsystem: "generator",
			Name:      "queue_depth",
			Help:      "Number of requests waiting for a generation cycle.",
		},
	)

	collectors := []prometheus.Collector{cyclesTotal, cycleDuration, inFlight, queueDepth}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector.(type) {
				case *prometheus.CounterVec:
					cyclesTotal = already.ExistingCollector.(*prometheus.CounterVec)
				case prometheus.Histogram:
					cycleDuration = already.ExistingCollector.(prometheus.Histogram)
				case prometheus.Gauge:
					if collector == inFlight {
						inFlight = already.ExistingCollector.(prometheus.Gauge)
					} else {
						queueDepth = already.ExistingCollector.(prometheus.Gauge)
					}
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		cyclesTotal:   cyclesTotal,
		cycleDuration: cycleDuration,
		inFlight:      inFlight,
		queueDepth:    queueDepth,
	}
}

// ObserveCycle records one finished cycle with its outcome label.
func (m *Metrics) ObserveCycle(outcome string, duration time.Duration) {
	if m == nil || m.cyclesTotal == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

// CycleStarted marks a cycle as executing.
func (m *Metrics) CycleStarted() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Inc()
}

// CycleFinished marks a cycle as done.
func (m *Metrics) CycleFinished() {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Dec()
}

// SetQueueDepth reports how many requests are currently queued.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
