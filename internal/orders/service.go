package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/pagination"
)

// Service exposes the customer's order history.
type Service interface {
	List(ctx context.Context, customerID int64, params pagination.Params) (*OrderList, error)
	Get(ctx context.Context, customerID int64, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, customerID int64, params pagination.Params) (*OrderList, error) {
	if customerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		return nil, pkgerrors.ClassifyStore(err, "list orders")
	}
	out := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		out.Orders = append(out.Orders, toDTO(row))
	}
	return out, nil
}

// Get returns NOT_FOUND for orders owned by someone else so a customer cannot
// learn which order ids exist.
func (s *service) Get(ctx context.Context, customerID int64, orderID uuid.UUID) (*OrderDTO, error) {
	if customerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.ClassifyStore(err, "load order")
	}
	if order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := toDTO(*order)
	return &dto, nil
}
