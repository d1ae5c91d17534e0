package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "autometer_"

	ResultSuccess = "success"
	ResultError   = "error"

	SampleAccepted = "accepted"
	SampleRejected = "rejected"
	SampleDropped  = "dropped"

	QuoteLive = "live"
	QuoteTrip = "trip"
)

var (
	registerOnce sync.Once

	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "position_samples_total",
			Help: "Position samples seen by distance accumulators, by outcome",
		},
		[]string{"result"},
	)
	quotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "fare_quotes_total",
			Help: "Fare quotes computed, by mode",
		},
		[]string{"mode", "night"},
	)
	mapsCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "maps_calls_total",
			Help: "Mapping service calls by operation and result",
		},
		[]string{"op", "result"},
	)
	mapsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "maps_latency_seconds",
			Help:    "Mapping service latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "session_transitions_total",
			Help: "Meter session transitions by action",
		},
		[]string{"action"},
	)
	trackingSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: metricPrefix + "tracking_sessions",
		Help: "Meter sessions currently tracking",
	})
	tariffSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricPrefix + "tariff_saves_total",
			Help: "Tariff save attempts by result",
		},
		[]string{"result"},
	)
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	Register(prometheus.DefaultRegisterer)
}

// Register registers the collectors with reg once per process.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			samplesTotal,
			quotesTotal,
			mapsCalls,
			mapsLatency,
			sessionTransitions,
			trackingSessions,
			tariffSaves,
		)
	})
}

func ObserveSample(result string) {
	samplesTotal.WithLabelValues(result).Inc()
}

func ObserveQuote(mode string, night bool) {
	n := "false"
	if night {
		n = "true"
	}
	quotesTotal.WithLabelValues(mode, n).Inc()
}

func ObserveMapsCall(op string, started time.Time, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	mapsCalls.WithLabelValues(op, result).Inc()
	mapsLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func ObserveTransition(action string) {
	sessionTransitions.WithLabelValues(action).Inc()
}

func TrackingStarted() {
	trackingSessions.Inc()
}

func TrackingStopped() {
	trackingSessions.Dec()
}

func ObserveTariffSave(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	tariffSaves.WithLabelValues(result).Inc()
}
