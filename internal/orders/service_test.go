package orders

import (
	"context"
	"testing"
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/avaldezco/sazonpos-backend/pkg/square"
	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"
)

type fakeRepo struct {
	orders        map[uuid.UUID]*models.Order
	statusUpdates []enums.OrderStatus
	fieldUpdates  []map[string]any
}

func newFakeRepo(orders ...*models.Order) *fakeRepo {
	repo := &fakeRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeRepo) FindLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	return nil, nil
}

func (f *fakeRepo) List(ctx context.Context, params ListOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	var rows []models.Order
	for _, order := range f.orders {
		rows = append(rows, *order)
	}
	return rows, nil, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	f.orders[orderID].Status = status
	return nil
}

func (f *fakeRepo) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	f.fieldUpdates = append(f.fieldUpdates, updates)
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		f.orders[orderID].Status = status
	}
	if ps, ok := updates["payment_status"].(enums.PaymentStatus); ok {
		f.orders[orderID].PaymentStatus = ps
	}
	return nil
}

func (f *fakeRepo) FindOpenOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeRepo) DailySummary(ctx context.Context, from, to time.Time) (*DailySummary, error) {
	return &DailySummary{}, nil
}

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeRefunder struct {
	refunds []square.RefundCreateParams
	err     error
}

func (f *fakeRefunder) RefundPayment(ctx context.Context, params square.RefundCreateParams) (*sq.PaymentRefund, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.refunds = append(f.refunds, params)
	return &sq.PaymentRefund{}, nil
}

func newTestService(repo Repository, box *fakeOutbox, refunder *fakeRefunder) Service {
	svc, _ := NewService(repo, fakeTx{}, box, refunder)
	return svc
}

func openOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "SZ-000010",
		TerminalID:    "terminal-1",
		CashierUserID: uuid.New(),
		Status:        status,
		PaymentMethod: enums.PaymentMethodCash,
		PaymentStatus: enums.PaymentStatusPaid,
		TotalCents:    28160,
	}
}

func TestUpdateStatusValidTransition(t *testing.T) {
	order := openOrder(enums.OrderStatusOpen)
	repo := newFakeRepo(order)
	box := &fakeOutbox{}
	svc := newTestService(repo, box, &fakeRefunder{})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusInKitchen,
		ActorUserID: uuid.New(),
		ActorRole:   "cashier",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusInKitchen {
		t.Fatalf("expected in_kitchen, got %s", updated.Status)
	}
	if len(box.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(box.events))
	}
	if box.events[0].EventType != enums.EventOrderStatusChanged {
		t.Fatalf("unexpected event type %s", box.events[0].EventType)
	}
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	order := openOrder(enums.OrderStatusOpen)
	repo := newFakeRepo(order)
	svc := newTestService(repo, &fakeOutbox{}, &fakeRefunder{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusServed,
		ActorUserID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestUpdateStatusIdempotentWhenAlreadyThere(t *testing.T) {
	order := openOrder(enums.OrderStatusReady)
	repo := newFakeRepo(order)
	box := &fakeOutbox{}
	svc := newTestService(repo, box, &fakeRefunder{})

	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     order.ID,
		Target:      enums.OrderStatusReady,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != enums.OrderStatusReady {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(box.events) != 0 {
		t.Fatalf("expected no events, got %d", len(box.events))
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOutbox{}, &fakeRefunder{})

	_, err := svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderID:     uuid.New(),
		Target:      enums.OrderStatusInKitchen,
		ActorUserID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected not found")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelRefundsCardPayment(t *testing.T) {
	reference := "sq-payment-123"
	order := openOrder(enums.OrderStatusOpen)
	order.PaymentMethod = enums.PaymentMethodCard
	order.PaymentReference = &reference

	repo := newFakeRepo(order)
	box := &fakeOutbox{}
	refunder := &fakeRefunder{}
	svc := newTestService(repo, box, refunder)

	canceled, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     order.ID,
		Reason:      "customer left",
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("expected refunded, got %s", canceled.PaymentStatus)
	}
	if len(refunder.refunds) != 1 {
		t.Fatalf("expected 1 refund, got %d", len(refunder.refunds))
	}
	if refunder.refunds[0].PaymentID != reference {
		t.Fatalf("unexpected payment id %s", refunder.refunds[0].PaymentID)
	}
	if refunder.refunds[0].AmountCents != order.TotalCents {
		t.Fatalf("unexpected refund amount %d", refunder.refunds[0].AmountCents)
	}
}

func TestCancelCashSkipsRefund(t *testing.T) {
	order := openOrder(enums.OrderStatusInKitchen)
	repo := newFakeRepo(order)
	refunder := &fakeRefunder{}
	svc := newTestService(repo, &fakeOutbox{}, refunder)

	canceled, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %s", canceled.Status)
	}
	if canceled.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("cash payments keep their status, got %s", canceled.PaymentStatus)
	}
	if len(refunder.refunds) != 0 {
		t.Fatalf("expected no refunds, got %d", len(refunder.refunds))
	}
}

func TestCancelRejectedAfterServed(t *testing.T) {
	order := openOrder(enums.OrderStatusServed)
	repo := newFakeRepo(order)
	svc := newTestService(repo, &fakeOutbox{}, &fakeRefunder{})

	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
	})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestListRejectsBadStatus(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeOutbox{}, &fakeRefunder{})
	if _, err := svc.List(context.Background(), ListInput{Status: "nope"}); err == nil {
		t.Fatal("expected validation error")
	}
}
