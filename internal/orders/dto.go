package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/enums"
)

// OrderLineDTO exposes a purchased line with its frozen price.
type OrderLineDTO struct {
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	LineSubtotal string `json:"lineSubtotal"`
}

// OrderDTO is the read model returned by the orders endpoints.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	SellerID        int64             `json:"sellerId"`
	Status          enums.OrderStatus `json:"status"`
	Total           string            `json:"total"`
	PaymentMethod   string            `json:"paymentMethod"`
	DeliveryAddress string            `json:"deliveryAddress"`
	CreatedAt       time.Time         `json:"createdAt"`
	Lines           []OrderLineDTO    `json:"lines"`
}

// OrderList is one page of a customer's orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

func toDTO(o models.Order) OrderDTO {
	lines := make([]OrderLineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineDTO{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPriceAtPurchase.StringFixed(2),
			LineSubtotal: l.LineSubtotal.StringFixed(2),
		})
	}
	return OrderDTO{
		ID:              o.ID,
		SellerID:        o.SellerID,
		Status:          o.Status,
		Total:           o.Total.StringFixed(2),
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		CreatedAt:       o.CreatedAt.UTC(),
		Lines:           lines,
	}
}
