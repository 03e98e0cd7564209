package guestcart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is a guest cart entry. UnitPrice and Name are snapshots taken when the
// product was first added; they are display-only and never used for checkout.
type Line struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
}

// Subtotal is the snapshot price times quantity, rounded to cents.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Cart is the whole guest snapshot. It carries no version; last write wins.
type Cart struct {
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Add merges by product id: an existing line has its quantity increased and
// keeps its original snapshot.
func (c *Cart) Add(line Line) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == line.ProductID {
			c.Lines[i].Quantity += line.Quantity
			return
		}
	}
	c.Lines = append(c.Lines, line)
}

// Quantity returns the quantity held for productID, zero when absent.
func (c Cart) Quantity(productID int64) int {
	for _, line := range c.Lines {
		if line.ProductID == productID {
			return line.Quantity
		}
	}
	return 0
}

// Remove deletes the line for productID and reports whether one existed.
func (c *Cart) Remove(productID int64) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// Total sums snapshot prices, rounded to cents.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total.Round(2)
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
