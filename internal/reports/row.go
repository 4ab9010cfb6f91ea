package reports

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// SalesFactRow is one checkout appended to the BigQuery sales table.
type SalesFactRow struct {
	EventID       string              `bigquery:"event_id"`
	OrderID       string              `bigquery:"order_id"`
	OrderNumber   string              `bigquery:"order_number"`
	TerminalID    string              `bigquery:"terminal_id"`
	CashierUserID string              `bigquery:"cashier_user_id"`
	CustomerID    bigquery.NullString `bigquery:"customer_id"`
	PaymentMethod string              `bigquery:"payment_method"`
	SubtotalCents int64               `bigquery:"subtotal_cents"`
	TotalCents    int64               `bigquery:"total_cents"`
	ItemCount     int64               `bigquery:"item_count"`
	OccurredAt    time.Time           `bigquery:"occurred_at"`
	IngestedAt    time.Time           `bigquery:"ingested_at"`
}
