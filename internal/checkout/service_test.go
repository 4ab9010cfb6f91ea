package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avaldezco/sazonpos-backend/internal/cart"
	"github.com/avaldezco/sazonpos-backend/internal/checkout/reservation"
	"github.com/avaldezco/sazonpos-backend/internal/orders"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/avaldezco/sazonpos-backend/pkg/square"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"
)

type memStore struct {
	mu    sync.Mutex
	items map[string][]cart.LineItem
}

func newMemStore() *memStore {
	return &memStore{items: map[string][]cart.LineItem{}}
}

func (m *memStore) Load(ctx context.Context, terminalID string) ([]cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[terminalID], nil
}

func (m *memStore) Save(ctx context.Context, terminalID string, items []cart.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[terminalID] = items
	return nil
}

type fakeOrdersRepo struct {
	created   *models.Order
	lineItems []models.OrderLineItem
	createErr error
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = order
	return order, nil
}

func (f *fakeOrdersRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	f.lineItems = items
	return nil
}

func (f *fakeOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) List(ctx context.Context, params orders.ListOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return nil
}

func (f *fakeOrdersRepo) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeOrdersRepo) FindOpenOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) DailySummary(ctx context.Context, from, to time.Time) (*orders.DailySummary, error) {
	return &orders.DailySummary{}, nil
}

type fakeMenuRepo struct {
	mappings []models.MenuItemIngredient
}

func (f *fakeMenuRepo) ListIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]models.MenuItemIngredient, error) {
	return f.mappings, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeCounter struct {
	next int64
}

func (f *fakeCounter) Incr(ctx context.Context, key string) (int64, error) {
	f.next++
	return f.next, nil
}

func (f *fakeCounter) CounterKey(name string) string { return "sz:counter:" + name }

type fakePayments struct {
	params    []square.PaymentCreateParams
	paymentID string
	err       error
}

func (f *fakePayments) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.params = append(f.params, params)
	id := f.paymentID
	return &sq.Payment{ID: &id}, nil
}

type fakeStock struct {
	requests []reservation.StockRequest
	results  []reservation.StockResult
}

func (f *fakeStock) Deduct(ctx context.Context, tx *gorm.DB, orderNumber string, actorUserID uuid.UUID, requests []reservation.StockRequest) ([]reservation.StockResult, error) {
	f.requests = requests
	return f.results, nil
}

type fakeLoyalty struct {
	customerID uuid.UUID
	points     int64
	calls      int
}

func (f *fakeLoyalty) AddPoints(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int64) error {
	f.customerID = customerID
	f.points = points
	f.calls++
	return nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type checkoutFixture struct {
	sessions *cart.Sessions
	orders   *fakeOrdersRepo
	menu     *fakeMenuRepo
	counter  *fakeCounter
	payments *fakePayments
	stock    *fakeStock
	loyalty  *fakeLoyalty
	outbox   *fakeOutbox
	svc      *service
}

func newFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	sessions, err := cart.NewSessions(newMemStore(), nil, cart.EngineOptions{ExactMatchLookups: true})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	fix := &checkoutFixture{
		sessions: sessions,
		orders:   &fakeOrdersRepo{},
		menu:     &fakeMenuRepo{},
		counter:  &fakeCounter{},
		payments: &fakePayments{paymentID: "pay_test_001"},
		stock:    &fakeStock{},
		loyalty:  &fakeLoyalty{},
		outbox:   &fakeOutbox{},
	}
	fix.svc = &service{
		sessions:   sessions,
		ordersRepo: fix.orders,
		menuRepo:   fix.menu,
		tx:         fakeTx{},
		counter:    fix.counter,
		payments:   fix.payments,
		stock:      fix.stock,
		loyalty:    fix.loyalty,
		outbox:     fix.outbox,
		locationID: "LOC123",
	}
	return fix
}

func (fix *checkoutFixture) engine(t *testing.T, terminalID string) *cart.Engine {
	t.Helper()
	eng, err := fix.sessions.Engine(terminalID)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !eng.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("engine never hydrated")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return eng
}

func addTaco(t *testing.T, eng *cart.Engine, menuItemID uuid.UUID, qty int) {
	t.Helper()
	eng.Add(cart.AddInput{
		ProductID: menuItemID.String(),
		Name:      "Taco al Pastor",
		BasePrice: decimal.NewFromFloat(85.50),
		Quantity:  qty,
	})
}

func TestSubmitCashOrder(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	menuItemID := uuid.New()
	addTaco(t, eng, menuItemID, 2)

	order, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.OrderNumber != "SZ-000001" {
		t.Fatalf("unexpected order number %s", order.OrderNumber)
	}
	if order.Status != enums.OrderStatusOpen {
		t.Fatalf("expected open, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("cash settles immediately, got %s", order.PaymentStatus)
	}
	if order.SubtotalCents != 17100 {
		t.Fatalf("expected subtotal 17100, got %d", order.SubtotalCents)
	}
	if order.TaxCents != 3078 {
		t.Fatalf("expected tax 3078, got %d", order.TaxCents)
	}
	if order.ServiceChargeCents != 1710 {
		t.Fatalf("expected service charge 1710, got %d", order.ServiceChargeCents)
	}
	if order.TotalCents != 21888 {
		t.Fatalf("expected total 21888, got %d", order.TotalCents)
	}
	if order.ItemCount != 2 {
		t.Fatalf("expected 2 items, got %d", order.ItemCount)
	}
	if len(fix.orders.lineItems) != 1 {
		t.Fatalf("expected 1 line item row, got %d", len(fix.orders.lineItems))
	}
	if len(fix.payments.params) != 0 {
		t.Fatal("cash orders must not touch the card processor")
	}
	if len(fix.outbox.events) != 1 || fix.outbox.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected one order.created event, got %v", fix.outbox.events)
	}
	if len(eng.Items()) != 0 {
		t.Fatal("cart should be cleared after checkout")
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	fix := newFixture(t)
	fix.engine(t, "terminal-1")

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "cash",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestSubmitCardRequiresSource(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	addTaco(t, eng, uuid.New(), 1)

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "card",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestSubmitCardChargesAndStoresReference(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	addTaco(t, eng, uuid.New(), 1)

	order, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "card",
		CardSourceID:  "cnon:card-nonce",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(fix.payments.params) != 1 {
		t.Fatalf("expected one charge, got %d", len(fix.payments.params))
	}
	charge := fix.payments.params[0]
	if charge.AmountCents != order.TotalCents {
		t.Fatalf("charged %d, order total %d", charge.AmountCents, order.TotalCents)
	}
	if charge.Currency != orders.Currency {
		t.Fatalf("unexpected currency %s", charge.Currency)
	}
	if charge.LocationID != "LOC123" {
		t.Fatalf("unexpected location %s", charge.LocationID)
	}
	if charge.ReferenceID != order.OrderNumber {
		t.Fatalf("reference %s should carry the order number %s", charge.ReferenceID, order.OrderNumber)
	}
	if order.PaymentReference == nil || *order.PaymentReference != "pay_test_001" {
		t.Fatalf("payment reference not stored: %v", order.PaymentReference)
	}
}

func TestSubmitCardChargeFailure(t *testing.T) {
	fix := newFixture(t)
	fix.payments.err = errors.New("card declined")
	eng := fix.engine(t, "terminal-1")
	addTaco(t, eng, uuid.New(), 1)

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "card",
		CardSourceID:  "cnon:card-nonce",
	})
	if err == nil {
		t.Fatal("expected charge error")
	}
	if fix.orders.created != nil {
		t.Fatal("no order should exist after a failed charge")
	}
	if len(eng.Items()) != 1 {
		t.Fatal("cart must survive a failed checkout")
	}
}

func TestSubmitAccruesLoyaltyPoints(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	addTaco(t, eng, uuid.New(), 2)
	customerID := uuid.New()

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		CustomerID:    &customerID,
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fix.loyalty.calls != 1 {
		t.Fatalf("expected one loyalty accrual, got %d", fix.loyalty.calls)
	}
	if fix.loyalty.customerID != customerID {
		t.Fatal("points went to the wrong customer")
	}
	if fix.loyalty.points != 171 {
		t.Fatalf("expected 171 points, got %d", fix.loyalty.points)
	}
}

func TestSubmitBuildsStockRequests(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	menuItemID := uuid.New()
	tortillaID := uuid.New()
	fix.menu.mappings = []models.MenuItemIngredient{
		{MenuItemID: menuItemID, InventoryItemID: tortillaID, QtyPerUnit: 3},
	}
	addTaco(t, eng, menuItemID, 2)

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(fix.stock.requests) != 1 {
		t.Fatalf("expected one stock request, got %d", len(fix.stock.requests))
	}
	if fix.stock.requests[0].InventoryItemID != tortillaID {
		t.Fatal("wrong ingredient requested")
	}
	if fix.stock.requests[0].Qty != 6 {
		t.Fatalf("expected qty 6, got %v", fix.stock.requests[0].Qty)
	}
}

func TestSubmitEmitsLowStockAlerts(t *testing.T) {
	fix := newFixture(t)
	eng := fix.engine(t, "terminal-1")
	addTaco(t, eng, uuid.New(), 1)
	fix.stock.results = []reservation.StockResult{
		{InventoryItemID: uuid.New(), Name: "Tortillas", SKU: "TOR-1", QtyOnHand: 4, Threshold: 5, CrossedLow: true},
		{InventoryItemID: uuid.New(), Name: "Cebolla", SKU: "CEB-1", QtyOnHand: 50, Threshold: 5},
	}

	_, err := fix.svc.Submit(context.Background(), SubmitInput{
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	lowStock := 0
	for _, event := range fix.outbox.events {
		if event.EventType == enums.EventLowStock {
			lowStock++
		}
	}
	if lowStock != 1 {
		t.Fatalf("expected one low stock event, got %d", lowStock)
	}
}
