package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxLineQuantity bounds a single cart line; cart_lines_quantity_range
// enforces the same range in the database.
const MaxLineQuantity = 9999

// Cart is the single persistent cart owned by a customer.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID int64      `gorm:"column:customer_id;not null;uniqueIndex"`
	Lines      []CartLine `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Cart) TableName() string { return "carts" }

// CartLine holds one product per cart; (cart_id, product_id) is unique.
type CartLine struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null"`
	ProductID int64     `gorm:"column:product_id;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLine) TableName() string { return "cart_lines" }
