package events

import (
	"math/big"
	"testing"

	"github.com/google/uuid"
)

func TestOrderTransitionedEvent(t *testing.T) {
	orderID := uuid.New()
	payload := OrderTransitioned{
		OrderID:    orderID,
		FromStatus: "INITIATED",
		ToStatus:   "PAYMENT_LOCKED",
		Actor:      "buyer",
		Timestamp:  1700000000,
	}

	if payload.EventType() != TypeOrderTransitioned {
		t.Fatalf("unexpected type %s", payload.EventType())
	}
	evt := payload.Event()
	if evt.Attributes["orderId"] != orderID.String() {
		t.Fatalf("unexpected orderId %s", evt.Attributes["orderId"])
	}
	if evt.Attributes["from"] != "INITIATED" || evt.Attributes["to"] != "PAYMENT_LOCKED" {
		t.Fatalf("unexpected transition attributes %v", evt.Attributes)
	}
}

func TestLedgerMovementCarriesKind(t *testing.T) {
	payload := LedgerMovement{
		Kind:    TypeLedgerRelease,
		UserID:  uuid.New(),
		OrderID: uuid.New(),
		Delta:   big.NewInt(4000),
		Balance: big.NewInt(4000),
	}
	if payload.EventType() != TypeLedgerRelease {
		t.Fatalf("unexpected type %s", payload.EventType())
	}
	if payload.Event().Attributes["delta"] != "4000" {
		t.Fatalf("unexpected delta %s", payload.Event().Attributes["delta"])
	}
}

func TestNilAmountFormatsAsZero(t *testing.T) {
	payload := OrderInitiated{OrderID: uuid.New(), ProductID: uuid.New(), BuyerID: uuid.New()}
	if payload.Event().Attributes["amount"] != "0" {
		t.Fatal("nil amount must format as 0")
	}
}
