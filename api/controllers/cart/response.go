package cart

import (
	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
)

type checkoutResponse struct {
	OrderID uuid.UUID `json:"orderId"`
	Total   string    `json:"total"`
	Status  string    `json:"status"`
}

func newCheckoutResponse(order *models.Order) checkoutResponse {
	return checkoutResponse{
		OrderID: order.ID,
		Total:   order.Total.StringFixed(2),
		Status:  string(order.Status),
	}
}

type removedResponse struct {
	LineID  uuid.UUID `json:"lineId"`
	Removed bool      `json:"removed"`
}

type clearedResponse struct {
	Cleared bool `json:"cleared"`
}
