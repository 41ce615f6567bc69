package obs

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	AcquireTotal *prometheus.CounterVec // result=success|capacity_exceeded|error
	ReleaseTotal *prometheus.CounterVec // result=success|terminal|error
	ConvertTotal *prometheus.CounterVec // result=success|expired|terminal|error

	HoldsActive    prometheus.Gauge
	ReclaimedTotal prometheus.Counter
	SweepLatencyMS prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_acquire_total",
				Help: "Total hold acquire attempts by result",
			},
			[]string{"result"},
		),
		ReleaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_release_total",
				Help: "Total hold release attempts by result",
			},
			[]string{"result"},
		),
		ConvertTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reservation_convert_total",
				Help: "Total hold convert attempts by result",
			},
			[]string{"result"},
		),
		HoldsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reservation_holds_active",
			Help: "Number of currently active (unexpired) holds",
		}),
		ReclaimedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_expired_reclaimed_total",
			Help: "Total number of expired holds reclaimed by the sweeper",
		}),
		SweepLatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_sweep_latency_ms",
			Help:    "Latency of sweeper passes (ms)",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.AcquireTotal,
			m.ReleaseTotal,
			m.ConvertTotal,
			m.HoldsActive,
			m.ReclaimedTotal,
			m.SweepLatencyMS,
		)
	}
	return m
}

const (
	ResultSuccess          = "success"
	ResultCapacityExceeded = "capacity_exceeded"
	ResultExpired          = "expired"
	ResultTerminal         = "terminal"
	ResultError            = "error"
)
