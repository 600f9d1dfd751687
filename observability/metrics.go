package observability

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"vester/core/events"
)

// EngineMetrics records grant-ledger activity from the event feed. It
// satisfies events.Emitter so it can be fanned in next to the journal
// without touching engine code.
type EngineMetrics struct {
	registry     *prometheus.Registry
	eventsTotal  *prometheus.CounterVec
	amountsTotal *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics
)

// Metrics returns the lazily-initialised engine metrics registry.
func Metrics() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = NewEngineMetrics(prometheus.NewRegistry())
	})
	return engineRegistry
}

// NewEngineMetrics builds a metrics emitter registered against the supplied
// registry.
func NewEngineMetrics(registry *prometheus.Registry) *EngineMetrics {
	m := &EngineMetrics{
		registry: registry,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vester",
			Subsystem: "engine",
			Name:      "events_total",
			Help:      "Engine events segmented by event type.",
		}, []string{"type"}),
		amountsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vester",
			Subsystem: "engine",
			Name:      "token_amount_total",
			Help:      "Token units moved by redemptions, supplies and withdrawals, segmented by event type and asset.",
		}, []string{"type", "asset"}),
	}
	registry.MustRegister(m.eventsTotal, m.amountsTotal)
	return m
}

// Registry exposes the underlying Prometheus registry for scraping or
// test inspection.
func (m *EngineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Emit implements events.Emitter.
func (m *EngineMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	if eventType == "" {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()

	payload, ok := evt.(events.Payload)
	if !ok {
		return
	}
	canonical := payload.Event()
	if canonical == nil {
		return
	}
	asset := canonical.Attributes["asset"]
	raw := canonical.Attributes["amount"]
	if asset == "" || raw == "" {
		return
	}
	value, valid := new(big.Int).SetString(raw, 10)
	if !valid || value.Sign() < 0 {
		return
	}
	units, _ := new(big.Float).SetInt(value).Float64()
	m.amountsTotal.WithLabelValues(eventType, asset).Add(units)
}

var _ events.Emitter = (*EngineMetrics)(nil)
