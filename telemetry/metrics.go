// Package telemetry exposes the engine's metrics and tracing surface: a
// Prometheus registry scraped over the agent's debug HTTP listener, and a
// thin OpenTelemetry tracer wrapping the request/reply path.
package telemetry

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	lib "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	xlog "go.rmagent.dev/core/log"
)

// Metrics collects the engine's counters and gauges. Host/process metrics
// are registered by default alongside the domain-specific ones below.
type Metrics struct {
	registry *lib.Registry

	dispatchOutcomes *lib.CounterVec
	pendingDepth     lib.Gauge
	watchdogOutstand lib.Gauge
	reconnects       *lib.CounterVec
}

// NewMetrics builds a ready-to-use Metrics instance, registering it (and
// the standard Go/process collectors) with reg, or a fresh registry if
// reg is nil.
func NewMetrics(reg *lib.Registry) (*Metrics, error) {
	if reg == nil {
		reg = lib.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		dispatchOutcomes: lib.NewCounterVec(lib.CounterOpts{
			Namespace: "rmagent",
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Dispatched requests, partitioned by outcome kind.",
		}, []string{"kind"}),
		pendingDepth: lib.NewGauge(lib.GaugeOpts{
			Namespace: "rmagent",
			Subsystem: "pending",
			Name:      "depth",
			Help:      "Number of entries currently held in the pending store.",
		}),
		watchdogOutstand: lib.NewGauge(lib.GaugeOpts{
			Namespace: "rmagent",
			Subsystem: "watchdog",
			Name:      "outstanding",
			Help:      "Number of asynchronous requests currently tracked by the watchdog.",
		}),
		reconnects: lib.NewCounterVec(lib.CounterOpts{
			Namespace: "rmagent",
			Subsystem: "broker",
			Name:      "reconnects_total",
			Help:      "Broker reconnect attempts, partitioned by session name.",
		}, []string{"session"}),
	}

	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if runtime.GOOS == "linux" || runtime.GOOS == "windows" {
		if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{ReportErrors: true})); err != nil {
			return nil, err
		}
	}
	for _, c := range []lib.Collector{m.dispatchOutcomes, m.pendingDepth, m.watchdogOutstand, m.reconnects} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDispatch records a completed dispatch outcome, keyed by outcome
// kind ("Succeeded" or one of the rmi.Kind values). Accepting a plain
// string instead of an rmi.Return keeps this package free of any
// dependency on rmi, which itself depends on telemetry to emit spans and
// observations from Dispatcher.Dispatch and Synchronous.Send.
func (m *Metrics) ObserveDispatch(kind string) {
	m.dispatchOutcomes.WithLabelValues(kind).Inc()
}

// SetPendingDepth reports the pending store's current size.
func (m *Metrics) SetPendingDepth(n int) {
	m.pendingDepth.Set(float64(n))
}

// SetWatchdogOutstanding reports the watchdog's current table size.
func (m *Metrics) SetWatchdogOutstanding(n int) {
	m.watchdogOutstand.Set(float64(n))
}

// ObserveReconnect records a reconnect attempt for the named session.
func (m *Metrics) ObserveReconnect(session string) {
	m.reconnects.WithLabelValues(session).Inc()
}

// Gather collects metrics on a best-effort basis.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// Handler returns an HTTP handler exposing the metrics for scraping.
func (m *Metrics) Handler(log xlog.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:            &errorLogger{ll: log},
		ErrorHandling:       promhttp.ContinueOnError,
		Registry:            m.registry,
		MaxRequestsInFlight: 10,
		Timeout:             5 * time.Second,
	})
}

// errorLogger adapts an xlog.Logger to promhttp's minimal logging
// interface.
type errorLogger struct {
	ll xlog.Logger
}

func (e *errorLogger) Println(v ...interface{}) {
	if e.ll == nil {
		return
	}
	e.ll.Warning(fmt.Sprint(v...))
}
