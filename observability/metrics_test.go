package observability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"trustmart/core/events"
)

type recordingEmitter struct {
	payloads []events.Payload
}

func (r *recordingEmitter) Emit(p events.Payload) {
	r.payloads = append(r.payloads, p)
}

func TestEmitterWithMetricsForwardsAndCounts(t *testing.T) {
	next := &recordingEmitter{}
	emitter := EmitterWithMetrics(next)

	transitions := testutil.ToFloat64(Settlement().transitions.WithLabelValues("INITIATED", "PAYMENT_LOCKED"))
	holds := testutil.ToFloat64(Settlement().ledgerOps.WithLabelValues(events.TypeLedgerHold))

	emitter.Emit(events.OrderTransitioned{
		OrderID:    uuid.New(),
		FromStatus: "INITIATED",
		ToStatus:   "PAYMENT_LOCKED",
		Actor:      "buyer",
	})
	emitter.Emit(events.LedgerMovement{Kind: events.TypeLedgerHold, UserID: uuid.New(), OrderID: uuid.New()})

	if len(next.payloads) != 2 {
		t.Fatalf("expected both payloads forwarded, got %d", len(next.payloads))
	}
	if got := testutil.ToFloat64(Settlement().transitions.WithLabelValues("INITIATED", "PAYMENT_LOCKED")); got != transitions+1 {
		t.Fatalf("expected transition counter to advance, got %v", got)
	}
	if got := testutil.ToFloat64(Settlement().ledgerOps.WithLabelValues(events.TypeLedgerHold)); got != holds+1 {
		t.Fatalf("expected ledger counter to advance, got %v", got)
	}
}

func TestEmitterWithMetricsNilNext(t *testing.T) {
	emitter := EmitterWithMetrics(nil)
	emitter.Emit(events.OrderSettled{OrderID: uuid.New(), Status: "PAYMENT_RELEASED"})
	emitter.Emit(nil)
}
