package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/google/uuid"

	"trustmart/core/events"
	"trustmart/core/types"
	"trustmart/native/ledger"
)

type auditRow struct {
	orderID uuid.UUID
	from    EscrowStatus
	to      EscrowStatus
	actor   Role
}

type mockState struct {
	orders   map[uuid.UUID]*Order
	products map[uuid.UUID]*types.Product
	accounts map[uuid.UUID]*ledger.Account
	holds    map[uuid.UUID]*ledger.Hold
	journal  []*ledger.Entry
	audit    []auditRow
}

func newMockState() *mockState {
	return &mockState{
		orders:   make(map[uuid.UUID]*Order),
		products: make(map[uuid.UUID]*types.Product),
		accounts: make(map[uuid.UUID]*ledger.Account),
		holds:    make(map[uuid.UUID]*ledger.Hold),
	}
}

func (m *mockState) OrderGet(id uuid.UUID) (*Order, bool, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, false, nil
	}
	return order.Clone(), true, nil
}

func (m *mockState) OrderPut(order *Order) error {
	if order == nil {
		return fmt.Errorf("nil order")
	}
	m.orders[order.ID] = order.Clone()
	return nil
}

func (m *mockState) ProductGet(id uuid.UUID) (*types.Product, bool, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, false, nil
	}
	return product.Clone(), true, nil
}

func (m *mockState) ProductPut(product *types.Product) error {
	if product == nil {
		return fmt.Errorf("nil product")
	}
	m.products[product.ID] = product.Clone()
	return nil
}

func (m *mockState) AuditAppend(orderID uuid.UUID, from, to EscrowStatus, actor Role, _ int64) error {
	m.audit = append(m.audit, auditRow{orderID: orderID, from: from, to: to, actor: actor})
	return nil
}

func (m *mockState) AccountGet(userID uuid.UUID) (*ledger.Account, bool, error) {
	acc, ok := m.accounts[userID]
	if !ok {
		return nil, false, nil
	}
	return acc.Clone(), true, nil
}

func (m *mockState) AccountPut(acc *ledger.Account) error {
	m.accounts[acc.UserID] = acc.Clone()
	return nil
}

func (m *mockState) HoldGet(orderID uuid.UUID) (*ledger.Hold, bool, error) {
	hold, ok := m.holds[orderID]
	if !ok {
		return nil, false, nil
	}
	return hold.Clone(), true, nil
}

func (m *mockState) HoldPut(hold *ledger.Hold) error {
	m.holds[hold.OrderID] = hold.Clone()
	return nil
}

func (m *mockState) HoldDelete(orderID uuid.UUID) error {
	delete(m.holds, orderID)
	return nil
}

func (m *mockState) JournalAppend(entry *ledger.Entry) error {
	m.journal = append(m.journal, entry.Clone())
	return nil
}

func (m *mockState) fund(userID uuid.UUID, amount int64) {
	m.accounts[userID] = &ledger.Account{UserID: userID, Available: big.NewInt(amount)}
}

func (m *mockState) balance(userID uuid.UUID) *big.Int {
	acc, ok := m.accounts[userID]
	if !ok {
		return big.NewInt(0)
	}
	return acc.Available
}

type fixture struct {
	engine  *Engine
	state   *mockState
	buyer   uuid.UUID
	seller  uuid.UUID
	arbiter uuid.UUID
	order   uuid.UUID
	product uuid.UUID
}

type recordingEmitter struct {
	payloads []events.Payload
}

func (r *recordingEmitter) Emit(p events.Payload) {
	r.payloads = append(r.payloads, p)
}

func newFixture(t *testing.T, status EscrowStatus) *fixture {
	t.Helper()
	state := newMockState()
	led := ledger.NewEngine()
	led.SetState(state)
	led.SetNowFunc(func() int64 { return 1700000000 })

	engine := NewEngine(led)
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return 1700000000 })

	f := &fixture{
		engine:  engine,
		state:   state,
		buyer:   uuid.New(),
		seller:  uuid.New(),
		arbiter: uuid.New(),
		order:   uuid.New(),
		product: uuid.New(),
	}
	state.fund(f.buyer, 10000)

	productStatus := types.ProductPending
	switch status {
	case StatusPaymentLocked, StatusSellerShipped, StatusDispute:
		productStatus = types.ProductEscrowLocked
	}
	f.state.products[f.product] = &types.Product{
		ID:       f.product,
		SellerID: f.seller,
		Title:    "mechanical keyboard",
		Price:    big.NewInt(4000),
		Status:   productStatus,
	}
	f.state.orders[f.order] = &Order{
		ID:        f.order,
		BuyerID:   f.buyer,
		ProductID: f.product,
		Amount:    big.NewInt(4000),
		Status:    status,
	}
	if productStatus == types.ProductEscrowLocked {
		// Orders past PAY carry an active hold.
		f.state.accounts[f.buyer].Available = big.NewInt(6000)
		f.state.holds[f.order] = &ledger.Hold{OrderID: f.order, UserID: f.buyer, Amount: big.NewInt(4000)}
	}
	return f
}

func (f *fixture) apply(action Action, actor Actor) (EscrowStatus, error) {
	return f.engine.Apply(f.order, action, actor)
}

func TestPayLocksFundsAndProduct(t *testing.T) {
	f := newFixture(t, StatusInitiated)

	status, err := f.apply(ActionPay, Actor{ID: f.buyer})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if status != StatusPaymentLocked {
		t.Fatalf("expected PAYMENT_LOCKED, got %s", status)
	}
	if f.state.balance(f.buyer).Cmp(big.NewInt(6000)) != 0 {
		t.Fatalf("expected buyer balance 6000, got %s", f.state.balance(f.buyer))
	}
	if _, ok := f.state.holds[f.order]; !ok {
		t.Fatal("expected an active hold after PAY")
	}
	if f.state.products[f.product].Status != types.ProductEscrowLocked {
		t.Fatalf("expected product ESCROW_LOCKED, got %s", f.state.products[f.product].Status)
	}
}

func TestPayWithInsufficientFundsLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, StatusInitiated)
	f.state.accounts[f.buyer].Available = big.NewInt(3999)

	_, err := f.apply(ActionPay, Actor{ID: f.buyer})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if f.state.orders[f.order].Status != StatusInitiated {
		t.Fatal("order status must not change on a failed pay")
	}
	if f.state.products[f.product].Status != types.ProductPending {
		t.Fatal("product status must not change on a failed pay")
	}
	if len(f.state.audit) != 0 {
		t.Fatal("no audit row may be written for a failed transition")
	}
}

func TestShipThenConfirmAutoReleases(t *testing.T) {
	f := newFixture(t, StatusPaymentLocked)

	status, err := f.apply(ActionShip, Actor{ID: f.seller})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if status != StatusSellerShipped {
		t.Fatalf("expected SELLER_SHIPPED, got %s", status)
	}

	status, err = f.apply(ActionConfirm, Actor{ID: f.buyer})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if status != StatusPaymentReleased {
		t.Fatalf("confirm must settle the order, got %s", status)
	}
	if f.state.balance(f.seller).Cmp(big.NewInt(4000)) != 0 {
		t.Fatalf("expected seller credited 4000, got %s", f.state.balance(f.seller))
	}
	if _, ok := f.state.holds[f.order]; ok {
		t.Fatal("hold must be consumed on release")
	}
	if f.state.products[f.product].Status != types.ProductSold {
		t.Fatalf("expected product SOLD, got %s", f.state.products[f.product].Status)
	}

	// Both the confirm and the chained release must be audited.
	if len(f.state.audit) != 3 {
		t.Fatalf("expected 3 audit rows, got %d", len(f.state.audit))
	}
	last := f.state.audit[len(f.state.audit)-1]
	if last.from != StatusBuyerConfirmed || last.to != StatusPaymentReleased || last.actor != RoleSystem {
		t.Fatalf("unexpected final audit row %+v", last)
	}
}

func TestCancelBeforePaymentUnlocksProduct(t *testing.T) {
	for _, tc := range []struct {
		name  string
		actor func(f *fixture) Actor
	}{
		{"buyer", func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{"seller", func(f *fixture) Actor { return Actor{ID: f.seller} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, StatusInitiated)

			status, err := f.apply(ActionCancel, tc.actor(f))
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if status != StatusRefunded {
				t.Fatalf("expected REFUNDED, got %s", status)
			}
			if f.state.balance(f.buyer).Cmp(big.NewInt(10000)) != 0 {
				t.Fatal("cancel before payment must not move funds")
			}
			if f.state.products[f.product].Status != types.ProductAvailable {
				t.Fatalf("expected product AVAILABLE, got %s", f.state.products[f.product].Status)
			}
		})
	}
}

func TestDisputeFreezesFunds(t *testing.T) {
	f := newFixture(t, StatusSellerShipped)

	status, err := f.apply(ActionDispute, Actor{ID: f.buyer})
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if status != StatusDispute {
		t.Fatalf("expected DISPUTE, got %s", status)
	}
	if _, ok := f.state.holds[f.order]; !ok {
		t.Fatal("hold must stay in place while disputed")
	}
}

func TestArbiterReleaseFromDispute(t *testing.T) {
	f := newFixture(t, StatusDispute)

	status, err := f.apply(ActionRelease, Actor{ID: f.arbiter, Arbiter: true})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if status != StatusPaymentReleased {
		t.Fatalf("expected PAYMENT_RELEASED, got %s", status)
	}
	if f.state.balance(f.seller).Cmp(big.NewInt(4000)) != 0 {
		t.Fatalf("expected seller credited, got %s", f.state.balance(f.seller))
	}
	if f.state.products[f.product].Status != types.ProductSold {
		t.Fatalf("expected product SOLD, got %s", f.state.products[f.product].Status)
	}
}

func TestArbiterRefundFromDispute(t *testing.T) {
	f := newFixture(t, StatusDispute)

	status, err := f.apply(ActionRefund, Actor{ID: f.arbiter, Arbiter: true})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if status != StatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", status)
	}
	if f.state.balance(f.buyer).Cmp(big.NewInt(10000)) != 0 {
		t.Fatalf("expected buyer refunded to 10000, got %s", f.state.balance(f.buyer))
	}
	if f.state.products[f.product].Status != types.ProductAvailable {
		t.Fatalf("expected product AVAILABLE, got %s", f.state.products[f.product].Status)
	}
}

func TestUnauthorizedActors(t *testing.T) {
	cases := []struct {
		name   string
		status EscrowStatus
		action Action
		actor  func(f *fixture) Actor
	}{
		{"stranger pays", StatusInitiated, ActionPay, func(f *fixture) Actor { return Actor{ID: uuid.New()} }},
		{"seller pays", StatusInitiated, ActionPay, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{"buyer ships", StatusPaymentLocked, ActionShip, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{"seller confirms", StatusSellerShipped, ActionConfirm, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{"buyer releases", StatusDispute, ActionRelease, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{"seller refunds", StatusDispute, ActionRefund, func(f *fixture) Actor { return Actor{ID: f.seller} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.status)

			_, err := f.apply(tc.action, tc.actor(f))
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if f.state.orders[f.order].Status != tc.status {
				t.Fatal("order status must not change on an unauthorized action")
			}
		})
	}
}

func TestInvalidTransitionsLeaveStateUntouched(t *testing.T) {
	cases := []struct {
		status EscrowStatus
		action Action
		actor  func(f *fixture) Actor
	}{
		{StatusInitiated, ActionShip, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{StatusInitiated, ActionConfirm, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusInitiated, ActionDispute, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusPaymentLocked, ActionPay, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusPaymentLocked, ActionCancel, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusPaymentLocked, ActionConfirm, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusSellerShipped, ActionPay, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusSellerShipped, ActionShip, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{StatusSellerShipped, ActionCancel, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{StatusBuyerConfirmed, ActionRelease, func(f *fixture) Actor { return Actor{ID: f.arbiter, Arbiter: true} }},
		{StatusDispute, ActionPay, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusDispute, ActionDispute, func(f *fixture) Actor { return Actor{ID: f.seller} }},
		{StatusPaymentReleased, ActionDispute, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusPaymentReleased, ActionRefund, func(f *fixture) Actor { return Actor{ID: f.arbiter, Arbiter: true} }},
		{StatusRefunded, ActionPay, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
		{StatusRefunded, ActionCancel, func(f *fixture) Actor { return Actor{ID: f.buyer} }},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s", tc.status, tc.action), func(t *testing.T) {
			f := newFixture(t, tc.status)
			balanceBefore := new(big.Int).Set(f.state.balance(f.buyer))

			_, err := f.apply(tc.action, tc.actor(f))
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
			var detail *InvalidTransitionError
			if !errors.As(err, &detail) {
				t.Fatalf("expected InvalidTransitionError detail, got %T", err)
			}
			if detail.From != tc.status || detail.Action != tc.action {
				t.Fatalf("unexpected detail %+v", detail)
			}
			if f.state.orders[f.order].Status != tc.status {
				t.Fatal("order status must not change on an invalid transition")
			}
			if f.state.balance(f.buyer).Cmp(balanceBefore) != 0 {
				t.Fatal("funds must not move on an invalid transition")
			}
			if len(f.state.audit) != 0 {
				t.Fatal("no audit row may be written for an invalid transition")
			}
		})
	}
}

func TestApplyMissingOrder(t *testing.T) {
	f := newFixture(t, StatusInitiated)

	_, err := f.engine.Apply(uuid.New(), ActionPay, Actor{ID: f.buyer})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestEventsEmittedPerTransition(t *testing.T) {
	f := newFixture(t, StatusSellerShipped)
	emitter := &recordingEmitter{}
	f.engine.SetEmitter(emitter)

	if _, err := f.apply(ActionConfirm, Actor{ID: f.buyer}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	var transitioned, settled int
	for _, p := range emitter.payloads {
		switch p.EventType() {
		case events.TypeOrderTransitioned:
			transitioned++
		case events.TypeOrderSettled:
			settled++
		}
	}
	if transitioned != 2 {
		t.Fatalf("expected 2 transition events (confirm + release), got %d", transitioned)
	}
	if settled != 1 {
		t.Fatalf("expected 1 settled event, got %d", settled)
	}
}

func TestAllowedReflectsTable(t *testing.T) {
	if !Allowed(StatusInitiated, ActionPay) {
		t.Fatal("PAY must be allowed from INITIATED")
	}
	if Allowed(StatusPaymentReleased, ActionRefund) {
		t.Fatal("terminal statuses have no outgoing transitions")
	}
	if Allowed(StatusPaymentLocked, ActionConfirm) {
		t.Fatal("CONFIRM requires SELLER_SHIPPED")
	}
}
