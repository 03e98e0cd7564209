package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent announces an order produced by checkout. Amounts are
// serialized as decimal strings.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID          `json:"order_id"`
	CustomerID      int64              `json:"customer_id"`
	SellerID        int64              `json:"seller_id"`
	Total           decimal.Decimal    `json:"total"`
	PaymentMethod   string             `json:"payment_method"`
	DeliveryAddress string             `json:"delivery_address"`
	Lines           []OrderCreatedLine `json:"lines"`
	CreatedAt       time.Time          `json:"created_at"`
}

type OrderCreatedLine struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineSubtotal decimal.Decimal `json:"line_subtotal"`
}

func (e *OrderCreatedEvent) AggregateID() uuid.UUID { return e.OrderID }
