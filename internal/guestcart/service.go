package guestcart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
)

type productLoader interface {
	Get(ctx context.Context, id int64) (*models.Product, error)
}

// Service manages the server-side guest cart for anonymous sessions.
type Service interface {
	Add(ctx context.Context, sessionID string, productID int64, quantity int) (*Cart, error)
	Remove(ctx context.Context, sessionID string, productID int64) (*Cart, error)
	Read(ctx context.Context, sessionID string) (*Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

type service struct {
	store    Store
	products productLoader
	now      func() time.Time
}

// NewService wires the guest cart to its snapshot store and the catalog.
func NewService(store Store, products productLoader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{store: store, products: products, now: time.Now}, nil
}

// ValidateSessionID checks the guest session is a UUID.
func ValidateSessionID(sessionID string) error {
	if _, err := uuid.Parse(strings.TrimSpace(sessionID)); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest session must be a UUID")
	}
	return nil
}

func quantityError(quantity int) error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("quantity must be between 1 and %d per product", models.MaxLineQuantity)).
		WithDetails(map[string]any{"quantity": quantity, "max": models.MaxLineQuantity})
}

func (s *service) Add(ctx context.Context, sessionID string, productID int64, quantity int) (*Cart, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	if quantity < 1 || quantity > models.MaxLineQuantity {
		return nil, quantityError(quantity)
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if cart.Quantity(p.ID)+quantity > models.MaxLineQuantity {
		return nil, quantityError(quantity)
	}
	cart.Add(Line{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.Price,
		Quantity:  quantity,
		AddedAt:   s.now().UTC(),
	})
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart")
	}
	return cart, nil
}

func (s *service) Remove(ctx context.Context, sessionID string, productID int64) (*Cart, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if !cart.Remove(productID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	if err := s.store.Save(ctx, sessionID, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save guest cart")
	}
	return cart, nil
}

func (s *service) Read(ctx context.Context, sessionID string) (*Cart, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	cart, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	return cart, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
	}
	return nil
}
