package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/janiele376/projeto-pet-shop-fullstack/internal/cart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/checkout"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/guestcart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/orders"
	pkgAuth "github.com/janiele376/projeto-pet-shop-fullstack/pkg/auth"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/metrics"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryRedis) RateLimitKey(scope string) string {
	return "rl:" + scope
}

type stubCartService struct {
	mu    sync.Mutex
	adds  int
	reads int
}

func (s *stubCartService) FindOrCreateCart(ctx context.Context, customerID int64) (*models.Cart, error) {
	return &models.Cart{ID: uuid.New(), CustomerID: customerID}, nil
}

func (s *stubCartService) AddLine(ctx context.Context, customerID, productID int64, quantity int) (*cart.LineView, error) {
	s.mu.Lock()
	s.adds++
	s.mu.Unlock()
	return &cart.LineView{ID: uuid.New(), ProductID: productID, Quantity: quantity, UnitPrice: "1.00", Subtotal: "1.00"}, nil
}

func (s *stubCartService) RemoveLine(ctx context.Context, customerID int64, lineID uuid.UUID) error {
	return nil
}

func (s *stubCartService) ReadCart(ctx context.Context, customerID int64) (*cart.CartView, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return &cart.CartView{Lines: []cart.LineView{}, Total: "0.00"}, nil
}

func (s *stubCartService) ClearCart(ctx context.Context, cartID uuid.UUID) error { return nil }

func (s *stubCartService) ClearCustomerCart(ctx context.Context, customerID int64) error { return nil }

type stubMerger struct{}

func (stubMerger) Merge(ctx context.Context, customerID int64, input cart.MergeInput) (*cart.MergeResult, error) {
	return &cart.MergeResult{Skipped: []cart.SkippedLine{}}, nil
}

type stubCheckout struct{}

func (stubCheckout) Checkout(ctx context.Context, customerID int64, input checkout.CheckoutInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New()}, nil
}

type stubGuestService struct{}

func (stubGuestService) Add(ctx context.Context, sessionID string, productID int64, quantity int) (*guestcart.Cart, error) {
	return &guestcart.Cart{}, nil
}

func (stubGuestService) Remove(ctx context.Context, sessionID string, productID int64) (*guestcart.Cart, error) {
	return &guestcart.Cart{}, nil
}

func (stubGuestService) Read(ctx context.Context, sessionID string) (*guestcart.Cart, error) {
	return &guestcart.Cart{}, nil
}

func (stubGuestService) Clear(ctx context.Context, sessionID string) error { return nil }

type stubOrdersService struct{}

func (stubOrdersService) List(ctx context.Context, customerID int64, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{Orders: []orders.OrderDTO{}}, nil
}

func (stubOrdersService) Get(ctx context.Context, customerID int64, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{ID: orderID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "petshop-test", ExpirationMinutes: 5},
		FeatureFlags: config.FeatureFlagsConfig{
			GuestCart: true,
		},
		RateLimit: config.RateLimitConfig{GuestWindow: time.Minute, GuestIPLimit: 100, GuestSessionLimit: 2},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, carts *stubCartService) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		newMemoryRedis(),
		metrics.NewHTTPMetrics(prometheus.NewRegistry()),
		carts,
		stubMerger{},
		stubCheckout{},
		stubGuestService{},
		stubOrdersService{},
	)
}

func bearer(t *testing.T, cfg *config.Config, customerID int64) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{CustomerID: customerID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig(), &stubCartService{})
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestCartRequiresAuth(t *testing.T) {
	router := newTestRouter(t, testConfig(), &stubCartService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestCartReadWithToken(t *testing.T) {
	cfg := testConfig()
	carts := &stubCartService{}
	router := newTestRouter(t, cfg, carts)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearer(t, cfg, 9))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.reads != 1 {
		t.Fatalf("expected one read, got %d", carts.reads)
	}
}

func TestAddItemReplaysWithIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	carts := &stubCartService{}
	router := newTestRouter(t, cfg, carts)
	token := bearer(t, cfg, 9)

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":1,"quantity":1}`))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "add-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201, got %d", i, resp.Code)
		}
		if i == 0 {
			first = resp.Body.String()
		} else if resp.Body.String() != first {
			t.Fatalf("expected replayed body")
		}
	}
	if carts.adds != 1 {
		t.Fatalf("expected service called once, got %d", carts.adds)
	}
}

func TestGuestCartRequiresSession(t *testing.T) {
	router := newTestRouter(t, testConfig(), &stubCartService{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/guest-cart", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without session, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest-cart", nil)
	req.Header.Set("X-Guest-Session", uuid.NewString())
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d", resp.Code)
	}
}

func TestGuestCartRateLimitedPerSession(t *testing.T) {
	router := newTestRouter(t, testConfig(), &stubCartService{})
	session := uuid.NewString()

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/guest-cart", nil)
		req.Header.Set("X-Guest-Session", session)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last)
	}
}

func TestGuestCartDisabledByFlag(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags.GuestCart = false
	router := newTestRouter(t, cfg, &stubCartService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/guest-cart", nil)
	req.Header.Set("X-Guest-Session", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when disabled, got %d", resp.Code)
	}
}
