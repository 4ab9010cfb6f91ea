package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avaldezco/sazonpos-backend/internal/cart"
	"github.com/avaldezco/sazonpos-backend/internal/checkout/helpers"
	"github.com/avaldezco/sazonpos-backend/internal/checkout/reservation"
	"github.com/avaldezco/sazonpos-backend/internal/customers"
	"github.com/avaldezco/sazonpos-backend/internal/orders"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/payloads"
	"github.com/avaldezco/sazonpos-backend/pkg/square"
	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"
)

const orderNumberCounter = "order_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSessions interface {
	Engine(terminalID string) (*cart.Engine, error)
}

type ingredientLoader interface {
	ListIngredients(ctx context.Context, menuItemIDs []uuid.UUID) ([]models.MenuItemIngredient, error)
}

type orderCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

type paymentCreator interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

type stockRunner interface {
	Deduct(ctx context.Context, tx *gorm.DB, orderNumber string, actorUserID uuid.UUID, requests []reservation.StockRequest) ([]reservation.StockResult, error)
}

type loyaltyRunner interface {
	AddPoints(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int64) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockEngine struct{}

func (stockEngine) Deduct(ctx context.Context, tx *gorm.DB, orderNumber string, actorUserID uuid.UUID, requests []reservation.StockRequest) ([]reservation.StockResult, error) {
	return reservation.DeductStock(ctx, tx, orderNumber, actorUserID, requests)
}

type loyaltyEngine struct {
	repo *customers.Repository
}

func (l loyaltyEngine) AddPoints(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int64) error {
	return l.repo.WithTx(tx).AddLoyaltyPoints(ctx, customerID, points)
}

// Service turns a terminal's cart into a persisted order.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Order, error)
}

// SubmitInput carries everything the register sends at checkout.
type SubmitInput struct {
	TerminalID    string
	CashierUserID uuid.UUID
	CashierRole   string
	CustomerID    *uuid.UUID
	TableLabel    *string
	PaymentMethod string
	// CardSourceID is the tokenized card from the terminal reader,
	// required for card payments and ignored for cash.
	CardSourceID string
}

type service struct {
	sessions   cartSessions
	ordersRepo orders.Repository
	menuRepo   ingredientLoader
	tx         txRunner
	counter    orderCounter
	payments   paymentCreator
	stock      stockRunner
	loyalty    loyaltyRunner
	outbox     outboxPublisher
	locationID string
}

// NewService wires the checkout orchestration.
func NewService(
	sessions *cart.Sessions,
	ordersRepo orders.Repository,
	menuRepo ingredientLoader,
	tx txRunner,
	counter orderCounter,
	payments paymentCreator,
	customersRepo *customers.Repository,
	publisher outboxPublisher,
	locationID string,
) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if menuRepo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if counter == nil {
		return nil, fmt.Errorf("order counter required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if customersRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		sessions:   sessions,
		ordersRepo: ordersRepo,
		menuRepo:   menuRepo,
		tx:         tx,
		counter:    counter,
		payments:   payments,
		stock:      stockEngine{},
		loyalty:    loyaltyEngine{repo: customersRepo},
		outbox:     publisher,
		locationID: locationID,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Order, error) {
	if strings.TrimSpace(input.TerminalID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "terminal id required")
	}
	if input.CashierUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	method, err := enums.ParsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	if method == enums.PaymentMethodCard && strings.TrimSpace(input.CardSourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card source required for card payments")
	}

	engine, err := s.sessions.Engine(input.TerminalID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open cart session")
	}
	if result := engine.Validate(); !result.IsValid {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cart not ready for checkout: %s", strings.Join(result.Errors, "; ")))
	}

	items := engine.Items()
	totals := engine.Totals()
	requests, err := s.stockRequests(ctx, items)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:                 uuid.New(),
		OrderNumber:        orderNumber,
		TerminalID:         input.TerminalID,
		CashierUserID:      input.CashierUserID,
		CustomerID:         input.CustomerID,
		TableLabel:         input.TableLabel,
		Status:             enums.OrderStatusOpen,
		PaymentMethod:      method,
		PaymentStatus:      enums.PaymentStatusPaid,
		SubtotalCents:      helpers.ToCents(totals.Subtotal),
		TaxCents:           helpers.ToCents(totals.Tax),
		ServiceChargeCents: helpers.ToCents(totals.ServiceCharge),
		TotalCents:         helpers.ToCents(totals.Total),
		ItemCount:          totals.ItemCount,
	}

	// Card charges go through Square before the transaction opens. A
	// creation failure after capture leaves the charge reconcilable by
	// the order number in the payment's reference.
	if method == enums.PaymentMethodCard {
		payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
			AmountCents: order.TotalCents,
			Currency:    orders.Currency,
			LocationID:  s.locationID,
			SourceID:    input.CardSourceID,
			ReferenceID: orderNumber,
			Note:        fmt.Sprintf("POS order %s", orderNumber),
		})
		if err != nil {
			return nil, err
		}
		if id := payment.GetID(); id != nil {
			order.PaymentReference = id
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		created, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created

		lineItems := helpers.BuildLineItems(order.ID, items)
		if err := repo.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		order.LineItems = lineItems

		stockResults, err := s.stock.Deduct(ctx, tx, order.OrderNumber, input.CashierUserID, requests)
		if err != nil {
			return err
		}

		if input.CustomerID != nil {
			points := helpers.LoyaltyPoints(order.SubtotalCents)
			if points > 0 {
				if err := s.loyalty.AddPoints(ctx, tx, *input.CustomerID, points); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accrue loyalty points")
				}
			}
		}

		if err := s.emitOrderCreated(ctx, tx, order, input); err != nil {
			return err
		}
		return s.emitLowStock(ctx, tx, input, stockResults)
	})
	if err != nil {
		return nil, err
	}

	engine.Clear()
	return order, nil
}

// stockRequests expands the cart lines into ingredient quantities using the
// menu's per-unit mappings. Lines without a menu item reference, open
// priced items keyed by hand, consume no stock.
func (s *service) stockRequests(ctx context.Context, items []cart.LineItem) ([]reservation.StockRequest, error) {
	qtyByMenuItem := make(map[uuid.UUID]int)
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		menuItemID, err := uuid.Parse(item.ProductID)
		if err != nil {
			continue
		}
		if _, seen := qtyByMenuItem[menuItemID]; !seen {
			ids = append(ids, menuItemID)
		}
		qtyByMenuItem[menuItemID] += item.Quantity
	}
	if len(ids) == 0 {
		return nil, nil
	}

	mappings, err := s.menuRepo.ListIngredients(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredient mappings")
	}

	requests := make([]reservation.StockRequest, 0, len(mappings))
	for _, mapping := range mappings {
		qty := qtyByMenuItem[mapping.MenuItemID]
		if qty <= 0 {
			continue
		}
		requests = append(requests, reservation.StockRequest{
			InventoryItemID: mapping.InventoryItemID,
			Qty:             mapping.QtyPerUnit * float64(qty),
		})
	}
	return requests, nil
}

func (s *service) nextOrderNumber(ctx context.Context) (string, error) {
	sequence, err := s.counter.Incr(ctx, s.counter.CounterKey(orderNumberCounter))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}
	return fmt.Sprintf("SZ-%06d", sequence), nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, input SubmitInput) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID:     input.CashierUserID,
			TerminalID: input.TerminalID,
			Role:       input.CashierRole,
		},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			TerminalID:    order.TerminalID,
			CashierUserID: order.CashierUserID,
			CustomerID:    order.CustomerID,
			TableLabel:    order.TableLabel,
			PaymentMethod: order.PaymentMethod,
			SubtotalCents: order.SubtotalCents,
			TotalCents:    order.TotalCents,
			ItemCount:     order.ItemCount,
			CreatedAt:     time.Now().UTC(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
	}
	return nil
}

func (s *service) emitLowStock(ctx context.Context, tx *gorm.DB, input SubmitInput, results []reservation.StockResult) error {
	for _, res := range results {
		if !res.CrossedLow {
			continue
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventLowStock,
			AggregateType: enums.AggregateInventory,
			AggregateID:   res.InventoryItemID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:     input.CashierUserID,
				TerminalID: input.TerminalID,
				Role:       input.CashierRole,
			},
			Data: payloads.LowStockEvent{
				InventoryItemID: res.InventoryItemID,
				Name:            res.Name,
				SKU:             res.SKU,
				QtyOnHand:       res.QtyOnHand,
				Threshold:       res.Threshold,
				ObservedAt:      time.Now().UTC(),
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue low stock event")
		}
	}
	return nil
}
