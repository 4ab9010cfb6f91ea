package messages

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/avaldezco/sazonpos-backend/pkg/db/models"
	"github.com/avaldezco/sazonpos-backend/pkg/enums"
	"github.com/avaldezco/sazonpos-backend/pkg/logger"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/idempotency"
	"github.com/avaldezco/sazonpos-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
)

const orderMessageConsumer = "order-messages"

type repository interface {
	Create(ctx context.Context, message *models.Message) error
}

// Consumer watches domain events and turns them into message-center entries
// for the kitchen and register screens.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order message consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("messages repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("messages subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
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
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	builder, ok := messageBuilders[eventType]
	if !ok {
		c.logg.Info(logCtx, "skipping unhandled event")
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderMessageConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	message, err := builder(envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderMessageConsumer, eventID)
		return processResult{nack: true}
	}
	if message == nil {
		return processResult{ack: true}
	}

	if err := c.repo.Create(ctx, message); err != nil {
		c.logg.Error(logCtx, "message creation failed", err)
		_ = c.idempotency.Delete(ctx, orderMessageConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "message created from event")
	return processResult{ack: true}
}

type messageBuilder func(data json.RawMessage) (*models.Message, error)

// messageBuilders maps domain events to the broadcast entries they produce.
// A nil recipient makes the message visible to every staff account.
var messageBuilders = map[enums.OutboxEventType]messageBuilder{
	enums.EventOrderCreated:       buildOrderCreatedMessage,
	enums.EventOrderStatusChanged: buildOrderStatusMessage,
	enums.EventOrderExpired:       buildOrderExpiredMessage,
	enums.EventLowStock:           buildLowStockMessage,
}

func buildOrderCreatedMessage(data json.RawMessage) (*models.Message, error) {
	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id missing")
	}
	body := fmt.Sprintf("Order %s submitted from terminal %s with %d items.",
		payload.OrderNumber, payload.TerminalID, payload.ItemCount)
	if payload.TableLabel != nil && *payload.TableLabel != "" {
		body = fmt.Sprintf("Order %s for table %s submitted with %d items.",
			payload.OrderNumber, *payload.TableLabel, payload.ItemCount)
	}
	return &models.Message{
		Kind:  enums.MessageKindOrder,
		Title: fmt.Sprintf("New order %s", payload.OrderNumber),
		Body:  body,
		Link:  stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}, nil
}

func buildOrderStatusMessage(data json.RawMessage) (*models.Message, error) {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id missing")
	}
	// Kitchen-facing transitions are already visible on the ticket rail;
	// only the states the front of house waits on become messages.
	switch payload.To {
	case enums.OrderStatusReady, enums.OrderStatusCanceled:
	default:
		return nil, nil
	}
	title := fmt.Sprintf("Order %s is ready", payload.OrderNumber)
	body := fmt.Sprintf("Order %s is ready for pickup at the pass.", payload.OrderNumber)
	if payload.To == enums.OrderStatusCanceled {
		title = fmt.Sprintf("Order %s canceled", payload.OrderNumber)
		body = fmt.Sprintf("Order %s was canceled while %s.", payload.OrderNumber, payload.From)
	}
	return &models.Message{
		Kind:  enums.MessageKindOrder,
		Title: title,
		Body:  body,
		Link:  stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}, nil
}

func buildOrderExpiredMessage(data json.RawMessage) (*models.Message, error) {
	var payload payloads.OrderExpiredEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id missing")
	}
	return &models.Message{
		Kind:  enums.MessageKindOrder,
		Title: fmt.Sprintf("Order %s expired", payload.OrderNumber),
		Body: fmt.Sprintf("Order %s sat open for %d hours and was canceled automatically.",
			payload.OrderNumber, payload.AgeHours),
		Link: stringPtr(fmt.Sprintf("/orders/%s", payload.OrderID)),
	}, nil
}

func buildLowStockMessage(data json.RawMessage) (*models.Message, error) {
	var payload payloads.LowStockEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.InventoryItemID == uuid.Nil {
		return nil, fmt.Errorf("inventory item id missing")
	}
	return &models.Message{
		Kind:  enums.MessageKindInventory,
		Title: fmt.Sprintf("Low stock: %s", payload.Name),
		Body: fmt.Sprintf("%s (%s) is down to %.2f, at or below the threshold of %.2f.",
			payload.Name, payload.SKU, payload.QtyOnHand, payload.Threshold),
		Link: stringPtr(fmt.Sprintf("/inventory/%s", payload.InventoryItemID)),
	}, nil
}

func stringPtr(value string) *string {
	return &value
}
