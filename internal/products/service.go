package product

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
)

type productReader interface {
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

// Lookup resolves product name and current price for cart and checkout.
type Lookup interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

type lookup struct {
	repo productReader
}

// NewLookup builds the product lookup over the provided reader.
func NewLookup(repo productReader) (Lookup, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &lookup{repo: repo}, nil
}

// Get returns the product or a NOT_FOUND error.
func (l *lookup) Get(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId must be positive")
	}
	p, err := l.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": id})
		}
		return nil, pkgerrors.ClassifyStore(err, "load product")
	}
	return p, nil
}

// GetMany returns every requested product or NOT_FOUND naming the first
// missing id.
func (l *lookup) GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	found, err := l.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.ClassifyStore(err, "load products")
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": id})
		}
	}
	return found, nil
}
