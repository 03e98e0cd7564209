package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
)

type productLoader interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
}

// Service exposes the persistent cart of an authenticated customer.
type Service interface {
	FindOrCreateCart(ctx context.Context, customerID int64) (*models.Cart, error)
	AddLine(ctx context.Context, customerID, productID int64, quantity int) (*LineView, error)
	RemoveLine(ctx context.Context, customerID int64, lineID uuid.UUID) error
	ReadCart(ctx context.Context, customerID int64) (*CartView, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
	ClearCustomerCart(ctx context.Context, customerID int64) error
}

type service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds a cart service backed by the provided repository and
// product lookup.
func NewService(repo CartRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func validateCustomer(customerID int64) error {
	if customerID <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	return nil
}

func quantityError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("quantity must be between 1 and %d per product", models.MaxLineQuantity)).
		WithDetails(map[string]any{"quantity": quantity, "max": models.MaxLineQuantity})
}

func (s *service) FindOrCreateCart(ctx context.Context, customerID int64) (*models.Cart, error) {
	if err := validateCustomer(customerID); err != nil {
		return nil, err
	}
	c, err := s.repo.FindOrCreate(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.ClassifyStore(err, "find or create cart")
	}
	return c, nil
}

func (s *service) AddLine(ctx context.Context, customerID, productID int64, quantity int) (*LineView, error) {
	if err := validateCustomer(customerID); err != nil {
		return nil, err
	}
	if quantity < 1 || quantity > models.MaxLineQuantity {
		return nil, quantityError(quantity)
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.FindOrCreateCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.UpsertLine(ctx, c.ID, p.ID, quantity)
	if err != nil {
		if errors.Is(err, ErrLineQuantityLimit) {
			return nil, quantityError(quantity)
		}
		return nil, pkgerrors.ClassifyStore(err, "add cart line")
	}

	view, _ := newLineView(line.ID, p.ID, p.Name, p.Price, line.Quantity)
	return &view, nil
}

func (s *service) RemoveLine(ctx context.Context, customerID int64, lineID uuid.UUID) error {
	if err := validateCustomer(customerID); err != nil {
		return err
	}
	if lineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "lineId required")
	}
	owner, err := s.repo.FindLineOwner(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return pkgerrors.ClassifyStore(err, "load cart line")
	}
	if owner.CustomerID != customerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "cart line belongs to another customer")
	}

	removed, err := s.repo.DeleteLine(ctx, owner.CartID, lineID)
	if err != nil {
		return pkgerrors.ClassifyStore(err, "remove cart line")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	return nil
}

// ReadCart prices every line at the product's current price. Reading never
// creates a cart.
func (s *service) ReadCart(ctx context.Context, customerID int64) (*CartView, error) {
	if err := validateCustomer(customerID); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(), nil
		}
		return nil, pkgerrors.ClassifyStore(err, "load cart")
	}

	rows, err := s.repo.ListLineViews(ctx, c.ID)
	if err != nil {
		return nil, pkgerrors.ClassifyStore(err, "load cart lines")
	}

	view := emptyView()
	view.CartID = &c.ID
	total := decimal.Zero
	for _, row := range rows {
		line, subtotal := newLineView(row.ID, row.ProductID, row.Name, row.Price, row.Quantity)
		view.Lines = append(view.Lines, line)
		total = total.Add(subtotal)
	}
	view.Total = total.Round(2).StringFixed(2)
	return view, nil
}

func (s *service) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cartId required")
	}
	if err := s.repo.ClearLines(ctx, cartID); err != nil {
		return pkgerrors.ClassifyStore(err, "clear cart")
	}
	return nil
}

// ClearCustomerCart clears the customer's cart; a customer without a cart is
// already clear.
func (s *service) ClearCustomerCart(ctx context.Context, customerID int64) error {
	if err := validateCustomer(customerID); err != nil {
		return err
	}
	c, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.ClassifyStore(err, "load cart")
	}
	return s.ClearCart(ctx, c.ID)
}
