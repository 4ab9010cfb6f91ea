package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const salesFactConsumer = "sales-facts"

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer appends one sales fact per checkout to BigQuery for the admin
// report screens. Only order.created events carry revenue; everything else
// on the topic is acked and skipped.
type Consumer struct {
	inserter     tableInserter
	table        string
	subscription *pubsub.Subscriber
	idempotency  idempotencyChecker
	logg         *logger.Logger
}

// NewConsumer builds a sales fact consumer.
func NewConsumer(inserter tableInserter, table string, subscription *pubsub.Subscriber, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if inserter == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("reports subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		inserter:     inserter,
		table:        strings.TrimSpace(table),
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != enums.EventOrderCreated {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, salesFactConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	row, err := buildSalesFact(envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build sales fact", err)
		_ = c.idempotency.Delete(ctx, salesFactConsumer, eventID)
		return processResult{nack: true}
	}

	if err := c.inserter.InsertRows(ctx, c.table, []any{row}); err != nil {
		c.logg.Error(logCtx, "bigquery insert failed", err)
		_ = c.idempotency.Delete(ctx, salesFactConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func buildSalesFact(envelope outbox.PayloadEnvelope) (*SalesFactRow, error) {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode order created payload: %w", err)
	}
	if payload.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id missing")
	}

	row := &SalesFactRow{
		EventID:       envelope.EventID,
		OrderID:       payload.OrderID.String(),
		OrderNumber:   payload.OrderNumber,
		TerminalID:    payload.TerminalID,
		CashierUserID: payload.CashierUserID.String(),
		PaymentMethod: string(payload.PaymentMethod),
		SubtotalCents: payload.SubtotalCents,
		TotalCents:    payload.TotalCents,
		ItemCount:     int64(payload.ItemCount),
		OccurredAt:    payload.CreatedAt,
		IngestedAt:    time.Now().UTC(),
	}
	if payload.CustomerID != nil {
		row.CustomerID = cbigquery.NullString{StringVal: payload.CustomerID.String(), Valid: true}
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = envelope.OccurredAt
	}
	return row, nil
}
