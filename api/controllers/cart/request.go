package cart

import (
	"github.com/janiele376/projeto-pet-shop-fullstack/api/validators"
	cartsvc "github.com/janiele376/projeto-pet-shop-fullstack/internal/cart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/checkout"
)

const (
	maxPaymentMethodLen   = 64
	maxDeliveryAddressLen = 512
)

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=9999"`
}

type checkoutRequest struct {
	PaymentMethod   string `json:"paymentMethod" validate:"omitempty,max=64"`
	DeliveryAddress string `json:"deliveryAddress" validate:"omitempty,max=512"`
}

func (r checkoutRequest) toInput() checkout.CheckoutInput {
	return checkout.CheckoutInput{
		PaymentMethod:   validators.SanitizeString(r.PaymentMethod, maxPaymentMethodLen),
		DeliveryAddress: validators.SanitizeString(r.DeliveryAddress, maxDeliveryAddressLen),
	}
}

// mergeRequest is optional; without lines the server-side guest snapshot is
// merged instead.
type mergeRequest struct {
	Lines []cartsvc.MergeLine `json:"lines" validate:"omitempty,max=200,dive"`
}
