package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service
// and checkout.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindOrCreate(ctx context.Context, customerID int64) (*models.Cart, error)
	FindByCustomer(ctx context.Context, customerID int64) (*models.Cart, error)
	LockByCustomer(ctx context.Context, customerID int64) (*models.Cart, error)
	UpsertLine(ctx context.Context, cartID uuid.UUID, productID int64, quantity int) (*models.CartLine, error)
	FindLineOwner(ctx context.Context, lineID uuid.UUID) (*LineOwner, error)
	DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (int64, error)
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error)
	ListLineViews(ctx context.Context, cartID uuid.UUID) ([]LineRow, error)
	ClearLines(ctx context.Context, cartID uuid.UUID) error
}

// LineOwner ties a cart line to the customer owning its cart.
type LineOwner struct {
	LineID     uuid.UUID
	CartID     uuid.UUID
	CustomerID int64
}
