package orders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/middleware"
	internalorders "github.com/janiele376/projeto-pet-shop-fullstack/internal/orders"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/pagination"
)

type stubOrdersService struct {
	params pagination.Params
	err    error
}

func (s *stubOrdersService) List(ctx context.Context, customerID int64, params pagination.Params) (*internalorders.OrderList, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderList{Orders: []internalorders.OrderDTO{}}, nil
}

func (s *stubOrdersService) Get(ctx context.Context, customerID int64, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.OrderDTO{ID: orderID, Total: "10.00"}, nil
}

func TestListPassesPagination(t *testing.T) {
	stub := &stubOrdersService{}
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), ID: uuid.New()})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor="+cursor, nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), 3))
	resp := httptest.NewRecorder()
	List(stub, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if stub.params.Limit != 5 || stub.params.Cursor != cursor {
		t.Fatalf("unexpected params %+v", stub.params)
	}
}

func TestListRejectsBadCursor(t *testing.T) {
	stub := &stubOrdersService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?cursor=abc", nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), 3))
	resp := httptest.NewRecorder()
	List(stub, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if stub.params.Limit != 0 {
		t.Fatal("service should not be called with a bad cursor")
	}
}

func TestListRejectsLimitOutOfRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=0", nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), 3))
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListRequiresCustomer(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestDetailNotFound(t *testing.T) {
	stub := &stubOrdersService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	router := chi.NewRouter()
	router.Get("/api/v1/orders/{orderId}", Detail(stub, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), 3))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestDetailSuccess(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/api/v1/orders/{orderId}", Detail(&stubOrdersService{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req = req.WithContext(middleware.WithCustomerID(req.Context(), 3))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}
