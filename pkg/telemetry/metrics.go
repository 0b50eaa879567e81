package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for the sanctuary.
// A Metrics built from a disabled config records nothing.
type Metrics struct {
	config MetricsConfig

	// Workflow metrics
	intakes           *prometheus.CounterVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	// Occupancy
	isolationInUse      prometheus.Gauge
	isolationTotal      prometheus.Gauge
	enclosurePopulation *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		intakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intakes_total",
				Help:      "Total number of primates admitted",
			},
			[]string{"species"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of keeper operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of keeper operations in seconds",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of admission policy violations",
			},
			[]string{"policy", "severity"},
		),

		isolationInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "isolation_units_in_use",
				Help:      "Current number of occupied isolation units",
			},
		),
		isolationTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "isolation_units_total",
				Help:      "Number of provisioned isolation units",
			},
		),
		enclosurePopulation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "enclosure_population",
				Help:      "Current number of primates per enclosure",
			},
			[]string{"species"},
		),
	}

	registry.MustRegister(
		m.intakes,
		m.operations,
		m.operationDuration,
		m.errorsByClass,
		m.errorsByCode,
		m.policyViolations,
		m.isolationInUse,
		m.isolationTotal,
		m.enclosurePopulation,
	)

	return m, nil
}

// Enabled reports whether the collector records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.registry != nil
}

// RecordIntake counts an admitted primate.
func (m *Metrics) RecordIntake(species string) {
	if !m.Enabled() {
		return
	}
	m.intakes.WithLabelValues(species).Inc()
}

// RecordOperation records the outcome and duration of a keeper operation.
func (m *Metrics) RecordOperation(operation, status string, duration time.Duration) {
	if !m.Enabled() {
		return
	}
	m.operations.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if !m.Enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// RecordPolicyViolation counts a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if !m.Enabled() {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// SetIsolation sets the isolation occupancy gauges.
func (m *Metrics) SetIsolation(inUse, total int) {
	if !m.Enabled() {
		return
	}
	m.isolationInUse.Set(float64(inUse))
	m.isolationTotal.Set(float64(total))
}

// SetEnclosurePopulation sets the population gauge for one species.
func (m *Metrics) SetEnclosurePopulation(species string, count int) {
	if !m.Enabled() {
		return
	}
	m.enclosurePopulation.WithLabelValues(species).Set(float64(count))
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the registry in text exposition format to path, for
// collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if !m.Enabled() || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Flush writes the configured textfile, if any.
func (m *Metrics) Flush() error {
	if m == nil {
		return nil
	}
	return m.WriteTextfile(m.config.Textfile)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
