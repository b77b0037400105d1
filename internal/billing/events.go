package billing

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
	EventStockLow     = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemLine struct {
	MenuItemID     int64 `json:"menu_item_id"`
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID      int64            `json:"order_id"`
	CustomerName string           `json:"customer_name"`
	Category     CustomerCategory `json:"customer_category"`
	Items        []ItemLine       `json:"items"`
	TotalCents   int64            `json:"total_cents"`
}

type OrderPaidPayload struct {
	OrderID       int64  `json:"order_id"`
	PaymentID     int64  `json:"payment_id"`
	InvoiceNumber string `json:"invoice_number"`
	AmountCents   int64  `json:"amount_cents"`
}

type StockLowPayload struct {
	OrderID     int64      `json:"order_id"`
	Ingredients []LowStock `json:"ingredients"`
}
