package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
)

// ErrLineQuantityLimit reports an increment that would push a line past
// models.MaxLineQuantity.
var ErrLineQuantityLimit = errors.New("cart line quantity limit exceeded")

// Repository exposes persistence operations for carts and cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindOrCreate inserts the customer's cart unless one exists and returns the
// stored row. Racing callers collapse onto the unique customer_id.
func (r *Repository) FindOrCreate(ctx context.Context, customerID int64) (*models.Cart, error) {
	candidate := models.Cart{
		ID:         uuid.New(),
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoNothing: true,
		}).
		Create(&candidate).Error
	if err != nil {
		return nil, err
	}
	return r.FindByCustomer(ctx, customerID)
}

// FindByCustomer returns gorm.ErrRecordNotFound when the customer has no cart.
func (r *Repository) FindByCustomer(ctx context.Context, customerID int64) (*models.Cart, error) {
	var c models.Cart
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// LockByCustomer loads the cart row with FOR UPDATE; it must run inside a
// transaction.
func (r *Repository) LockByCustomer(ctx context.Context, customerID int64) (*models.Cart, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ?", customerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertLine adds quantity to the (cart, product) line in a single statement
// and returns the resulting row.
func (r *Repository) UpsertLine(ctx context.Context, cartID uuid.UUID, productID int64, quantity int) (*models.CartLine, error) {
	now := time.Now().UTC()
	line := models.CartLine{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	res := r.db.WithContext(ctx).
		Clauses(upsertLineClause(now)).
		Create(&line)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrLineQuantityLimit
	}

	var stored models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// upsertLineClause turns a duplicate (cart_id, product_id) insert into an
// in-place increment. The update is skipped, leaving zero affected rows, when
// the sum would pass MaxLineQuantity.
func upsertLineClause(now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_lines.quantity + excluded.quantity"),
			"updated_at": now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("cart_lines.quantity + excluded.quantity <= ?", models.MaxLineQuantity),
		}},
	}
}

// FindLineOwner resolves the cart and customer a line belongs to.
func (r *Repository) FindLineOwner(ctx context.Context, lineID uuid.UUID) (*LineOwner, error) {
	var owner LineOwner
	err := r.db.WithContext(ctx).
		Table("cart_lines AS cl").
		Select("cl.id AS line_id, cl.cart_id AS cart_id, c.customer_id AS customer_id").
		Joins("JOIN carts c ON c.id = cl.cart_id").
		Where("cl.id = ?", lineID).
		Take(&owner).Error
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

// DeleteLine removes the line only when it still belongs to cartID and
// reports how many rows went away.
func (r *Repository) DeleteLine(ctx context.Context, cartID, lineID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", lineID, cartID).
		Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

func (r *Repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// LineRow is a cart line joined to the product's current name and price.
type LineRow struct {
	ID        uuid.UUID
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

func (r *Repository) ListLineViews(ctx context.Context, cartID uuid.UUID) ([]LineRow, error) {
	var rows []LineRow
	err := r.db.WithContext(ctx).
		Table("cart_lines AS cl").
		Select("cl.id AS id, cl.product_id AS product_id, p.name AS name, p.price AS price, cl.quantity AS quantity").
		Joins("JOIN products p ON p.id = cl.product_id").
		Where("cl.cart_id = ?", cartID).
		Order("cl.created_at ASC, cl.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClearLines deletes every line in the cart; clearing an empty cart is a no-op.
func (r *Repository) ClearLines(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartLine{}).Error
}
