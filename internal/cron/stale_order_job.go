package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/avaldezco/sazonpos-backend/internal/orders"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/payloads"
)

const defaultStaleOrderTTL = 12 * time.Hour

// StaleOrderJobParams configure the open-order expiry sweep.
type StaleOrderJobParams struct {
	Logger                   *logger.Logger
	DB                       txRunner
	OpenOrders               openOrderReader
	Outbox                   outboxEmitter
	TTL                      time.Duration
	TransactionalRepoFactory staleOrderRepoFactory
}

type openOrderReader interface {
	FindOpenOrdersBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type staleOrderTxRepo interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

type staleOrderRepoFactory func(tx *gorm.DB) staleOrderTxRepo

func defaultStaleOrderRepo(tx *gorm.DB) staleOrderTxRepo {
	return orders.NewRepository(tx)
}

// NewStaleOrderJob builds the cron job that cancels orders stuck in the open
// state past the configured TTL.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.OpenOrders == nil {
		return nil, fmt.Errorf("open orders reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultStaleOrderTTL
	}
	repoFactory := params.TransactionalRepoFactory
	if repoFactory == nil {
		repoFactory = defaultStaleOrderRepo
	}
	return &staleOrderJob{
		logg:        params.Logger,
		db:          params.DB,
		openOrders:  params.OpenOrders,
		outbox:      params.Outbox,
		ttl:         ttl,
		repoFactory: repoFactory,
		now:         time.Now,
	}, nil
}

type staleOrderJob struct {
	logg        *logger.Logger
	db          txRunner
	openOrders  openOrderReader
	outbox      outboxEmitter
	ttl         time.Duration
	repoFactory staleOrderRepoFactory
	now         func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-orders" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	stale, err := j.openOrders.FindOpenOrdersBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale open orders: %w", err)
	}
	var errs error
	expired := 0
	for _, order := range stale {
		if err := j.expireOrder(ctx, order.ID, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.OrderNumber, err))
			continue
		}
		expired++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "stale order sweep complete")
	return errs
}

func (j *staleOrderJob) expireOrder(ctx context.Context, orderID uuid.UUID, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		// Re-check under the transaction: the kitchen may have picked the
		// order up between the sweep query and now.
		if order.Status != enums.OrderStatusOpen {
			return nil
		}
		updates := map[string]any{
			"status": enums.OrderStatusCanceled,
		}
		if err := repo.UpdateFields(ctx, order.ID, updates); err != nil {
			return err
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderExpiredEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				TerminalID:  order.TerminalID,
				ExpiredAt:   now,
				AgeHours:    int(now.Sub(order.CreatedAt).Hours()),
			},
		}
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}
