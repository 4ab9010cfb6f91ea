package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avaldezco/sazonpos-backend/pkg/db"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	pkgerrors "github.com/avaldezco/sazonpos-backend/pkg/errors"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/payloads"
	"github.com/avaldezco/sazonpos-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes stockroom management operations.
type Service interface {
	Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error)
	Update(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error)
	Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryItem, error)
	Adjustments(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryAdjustment, error)
}

// CreateItemInput holds the validated payload to create an inventory item.
type CreateItemInput struct {
	Name              string
	SKU               string
	Unit              enums.InventoryUnit
	QtyOnHand         float64
	LowStockThreshold float64
}

// UpdateItemInput holds optional mutation values for an inventory item.
type UpdateItemInput struct {
	Name              *string
	Unit              *enums.InventoryUnit
	LowStockThreshold *float64
}

// ListInput configures the inventory listing.
type ListInput struct {
	LowStockOnly bool
	Limit        int
	Cursor       string
}

// ListResult wraps a page of inventory items and the next-page cursor.
type ListResult struct {
	Items  []models.InventoryItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

// AdjustInput records a manual stock change.
type AdjustInput struct {
	ItemID      uuid.UUID
	Delta       float64
	Reason      string
	ActorUserID *uuid.UUID
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo     *Repository
	dbClient *db.Client
	events   outboxEmitter
}

// NewService constructs an inventory service instance.
func NewService(repo *Repository, dbClient *db.Client, events outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &service{repo: repo, dbClient: dbClient, events: events}, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if strings.TrimSpace(input.SKU) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku required")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
	}
	if input.QtyOnHand < 0 || input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantities cannot be negative")
	}

	item := &models.InventoryItem{
		Name:              strings.TrimSpace(input.Name),
		SKU:               strings.TrimSpace(input.SKU),
		Unit:              input.Unit,
		QtyOnHand:         input.QtyOnHand,
		LowStockThreshold: input.LowStockThreshold,
	}
	if _, err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "ux_inventory_items_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	if input.Unit != nil && !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid unit")
	}
	if input.LowStockThreshold != nil && *input.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}

	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}

	if input.Name != nil {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.LowStockThreshold != nil {
		item.LowStockThreshold = *input.LowStockThreshold
	}
	if _, err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	params := listInventoryParams{
		LowStockOnly: input.LowStockOnly,
		Limit:        input.Limit,
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	items, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	result := &ListResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// Adjust applies a manual stock delta inside a transaction, records the
// audit row, and queues a low-stock event when the new quantity crosses
// the threshold.
func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryItem, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}

	var adjusted *models.InventoryItem
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindByIDForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}

		next := item.QtyOnHand + input.Delta
		if next < 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("adjustment would leave %s below zero", item.SKU))
		}

		wasLow := item.QtyOnHand <= item.LowStockThreshold
		item.QtyOnHand = next
		if _, err := repo.Update(ctx, item); err != nil {
			return err
		}

		adjustment := &models.InventoryAdjustment{
			InventoryItemID: item.ID,
			Delta:           input.Delta,
			Reason:          strings.TrimSpace(input.Reason),
			ActorUserID:     input.ActorUserID,
		}
		if err := repo.RecordAdjustment(ctx, adjustment); err != nil {
			return err
		}

		if !wasLow && next <= item.LowStockThreshold {
			event := outbox.DomainEvent{
				EventType:     enums.EventLowStock,
				AggregateType: enums.AggregateInventory,
				AggregateID:   item.ID,
				Data: payloads.LowStockEvent{
					InventoryItemID: item.ID,
					Name:            item.Name,
					SKU:             item.SKU,
					QtyOnHand:       next,
					Threshold:       item.LowStockThreshold,
					ObservedAt:      time.Now().UTC(),
				},
				Version: 1,
			}
			if input.ActorUserID != nil {
				event.Actor = &outbox.ActorRef{UserID: *input.ActorUserID}
			}
			if err := s.events.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}

		adjusted = item
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust inventory")
	}
	return adjusted, nil
}

func (s *service) Adjustments(ctx context.Context, itemID uuid.UUID, limit int) ([]models.InventoryAdjustment, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	rows, err := s.repo.ListAdjustments(ctx, itemID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list adjustments")
	}
	return rows, nil
}
