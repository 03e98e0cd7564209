package guestcart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartAddMergesByProduct(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 1, Name: "Ração", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2})
	c.Add(Line{ProductID: 1, Name: "Ração (novo)", UnitPrice: decimal.RequireFromString("12.00"), Quantity: 3})
	c.Add(Line{ProductID: 2, Name: "Coleira", UnitPrice: decimal.RequireFromString("25.00"), Quantity: 1})

	if len(c.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(c.Lines))
	}
	if c.Lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", c.Lines[0].Quantity)
	}
	if !c.Lines[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) || c.Lines[0].Name != "Ração" {
		t.Fatalf("first snapshot should be kept, got %+v", c.Lines[0])
	}
	if got := c.Total().StringFixed(2); got != "75.00" {
		t.Fatalf("expected total 75.00, got %s", got)
	}
}

func TestCartRemove(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 1, Quantity: 1})
	if !c.Remove(1) {
		t.Fatalf("expected remove to succeed")
	}
	if c.Remove(1) {
		t.Fatalf("second remove should report missing")
	}
	if !c.IsEmpty() {
		t.Fatalf("cart should be empty")
	}
	if got := c.Total().StringFixed(2); got != "0.00" {
		t.Fatalf("empty total should be 0.00, got %s", got)
	}
}

func TestCartTotalRoundsHalfUp(t *testing.T) {
	var c Cart
	c.Add(Line{ProductID: 1, UnitPrice: decimal.RequireFromString("0.005"), Quantity: 1})
	if got := c.Total().StringFixed(2); got != "0.01" {
		t.Fatalf("expected 0.01, got %s", got)
	}
}
