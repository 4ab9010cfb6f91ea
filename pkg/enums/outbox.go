package enums

// OutboxEventType names the domain events the outbox can carry.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderExpired       OutboxEventType = "order.expired"
	EventLowStock           OutboxEventType = "inventory.low_stock"
)

// OutboxAggregateType names the aggregate a domain event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder     OutboxAggregateType = "order"
	AggregateInventory OutboxAggregateType = "inventory_item"
)

// OutboxStatusPublished marks rows the publisher has dispatched.
const OutboxStatusPublished = "published"
