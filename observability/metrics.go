package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"trustmart/core/events"
)

// SettlementMetrics aggregates counters for order lifecycle and ledger
// activity.
type SettlementMetrics struct {
	transitions *prometheus.CounterVec
	settled     *prometheus.CounterVec
	ledgerOps   *prometheus.CounterVec
}

var (
	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// Settlement returns the lazily-initialised settlement metrics registry.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustmart",
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Committed escrow transitions segmented by from and to status.",
			}, []string{"from", "to"}),
			settled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustmart",
				Subsystem: "escrow",
				Name:      "settled_total",
				Help:      "Orders reaching a terminal status.",
			}, []string{"status"}),
			ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "trustmart",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Successful ledger operations segmented by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			settlementRegistry.transitions,
			settlementRegistry.settled,
			settlementRegistry.ledgerOps,
		)
	})
	return settlementRegistry
}

// metricsEmitter counts lifecycle events before forwarding them to the next
// emitter in the chain.
type metricsEmitter struct {
	next    events.Emitter
	metrics *SettlementMetrics
}

// EmitterWithMetrics wraps next so that every emitted event is also
// reflected in the Prometheus registry. Passing nil forwards to a no-op
// emitter.
func EmitterWithMetrics(next events.Emitter) events.Emitter {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &metricsEmitter{next: next, metrics: Settlement()}
}

// Emit implements the events.Emitter interface.
func (m *metricsEmitter) Emit(p events.Payload) {
	if p != nil {
		evt := p.Event()
		switch p.EventType() {
		case events.TypeOrderTransitioned:
			if evt != nil {
				m.metrics.transitions.WithLabelValues(evt.Attributes["from"], evt.Attributes["to"]).Inc()
			}
		case events.TypeOrderSettled:
			if evt != nil {
				m.metrics.settled.WithLabelValues(evt.Attributes["status"]).Inc()
			}
		case events.TypeLedgerHold, events.TypeLedgerRelease, events.TypeLedgerRefund:
			m.metrics.ledgerOps.WithLabelValues(p.EventType()).Inc()
		}
	}
	m.next.Emit(p)
}
