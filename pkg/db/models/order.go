package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/enums"
)

// Order is the immutable record produced by a successful checkout.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      int64             `gorm:"column:customer_id;not null"`
	SellerID        int64             `gorm:"column:seller_id;not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:order_status;not null"`
	PaymentMethod   string            `gorm:"column:payment_method;not null"`
	DeliveryAddress string            `gorm:"column:delivery_address;not null"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;not null"`
}

func (Order) TableName() string { return "orders" }

// OrderLine freezes the price and name of a product at purchase time.
type OrderLine struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID           int64           `gorm:"column:product_id;not null"`
	ProductName         string          `gorm:"column:product_name;not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	UnitPriceAtPurchase decimal.Decimal `gorm:"column:unit_price_at_purchase;type:numeric(12,2);not null"`
	LineSubtotal        decimal.Decimal `gorm:"column:line_subtotal;type:numeric(12,2);not null"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLine) TableName() string { return "order_lines" }
