package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineView is a cart line priced at the product's current price. Money is
// rendered with two decimals.
type LineView struct {
	ID        uuid.UUID `json:"id"`
	ProductID int64     `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
}

// CartView is the computed cart; nothing in it is stored.
type CartView struct {
	CartID *uuid.UUID `json:"cartId,omitempty"`
	Lines  []LineView `json:"lines"`
	Total  string     `json:"total"`
}

func newLineView(id uuid.UUID, productID int64, name string, price decimal.Decimal, quantity int) (LineView, decimal.Decimal) {
	subtotal := price.Mul(decimal.NewFromInt(int64(quantity)))
	return LineView{
		ID:        id,
		ProductID: productID,
		Name:      name,
		UnitPrice: price.StringFixed(2),
		Quantity:  quantity,
		Subtotal:  subtotal.Round(2).StringFixed(2),
	}, subtotal
}

func emptyView() *CartView {
	return &CartView{Lines: []LineView{}, Total: decimal.Zero.StringFixed(2)}
}
