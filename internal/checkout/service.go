package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/janiele376/projeto-pet-shop-fullstack/internal/cart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/orders"
	product "github.com/janiele376/projeto-pet-shop-fullstack/internal/products"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db/models"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/enums"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/metrics"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/outbox/payloads"
)

// Checkout stages reported on failures.
const (
	stepLockCart    = "lock_cart"
	stepPriceLines  = "price_lines"
	stepCreateOrder = "create_order"
	stepClearCart   = "clear_cart"
	stepEmitEvent   = "emit_order_created"
)

type txRunner interface {
	WithTxOptions(ctx context.Context, opts *sql.TxOptions, fn func(tx *gorm.DB) error) error
}

type productSource interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service converts a customer's cart into an order.
type Service interface {
	Checkout(ctx context.Context, customerID int64, input CheckoutInput) (*models.Order, error)
}

// CheckoutInput carries the optional payment and delivery details. Blank
// values fall back to the configured placeholders.
type CheckoutInput struct {
	PaymentMethod   string
	DeliveryAddress string
}

// Options configures defaults and the transaction isolation.
type Options struct {
	DefaultPaymentMethod   string
	DefaultDeliveryAddress string
	DefaultSellerID        int64
	TxOptions              *sql.TxOptions
}

type service struct {
	tx          txRunner
	cartRepo    cart.CartRepository
	ordersRepo  orders.Repository
	productRepo *product.Repository
	outbox      outboxPublisher
	opts        Options
	logg        *logger.Logger
	metrics     *metrics.CartMetrics
	now         func() time.Time
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	ordersRepo orders.Repository,
	productRepo *product.Repository,
	publisher outboxPublisher,
	opts Options,
	logg *logger.Logger,
	m *metrics.CartMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.DefaultPaymentMethod) == "" || strings.TrimSpace(opts.DefaultDeliveryAddress) == "" {
		return nil, fmt.Errorf("checkout defaults required")
	}
	if opts.DefaultSellerID <= 0 {
		return nil, fmt.Errorf("default seller id must be positive")
	}
	if opts.TxOptions == nil {
		opts.TxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		ordersRepo:  ordersRepo,
		productRepo: productRepo,
		outbox:      publisher,
		opts:        opts,
		logg:        logg,
		metrics:     m,
		now:         time.Now,
	}, nil
}

// Checkout locks the cart, prices it at current product prices, writes the
// order and its lines, empties the cart and queues order_created. Everything
// happens in one transaction.
func (s *service) Checkout(ctx context.Context, customerID int64, input CheckoutInput) (*models.Order, error) {
	started := s.now()
	if customerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer required")
	}

	var result *models.Order
	err := s.tx.WithTxOptions(ctx, s.opts.TxOptions, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)
		products, err := product.NewLookup(s.productRepo.WithTx(tx))
		if err != nil {
			return err
		}

		c, err := cartRepo.LockByCustomer(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
			}
			return pkgerrors.AtStep(stepLockCart, err)
		}
		lines, err := cartRepo.ListLines(ctx, c.ID)
		if err != nil {
			return pkgerrors.AtStep(stepLockCart, err)
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		order, err := s.buildOrder(ctx, products, customerID, lines, input)
		if err != nil {
			return pkgerrors.AtStep(stepPriceLines, err)
		}
		orderLines := order.Lines
		if _, err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.AtStep(stepCreateOrder, err)
		}
		for i := range orderLines {
			orderLines[i].OrderID = order.ID
		}
		if err := ordersRepo.CreateLines(ctx, orderLines); err != nil {
			return pkgerrors.AtStep(stepCreateOrder, err)
		}
		order.Lines = orderLines

		if err := cartRepo.ClearLines(ctx, c.ID); err != nil {
			return pkgerrors.AtStep(stepClearCart, err)
		}

		if err := s.outbox.Emit(ctx, tx, orderCreatedEvent(order)); err != nil {
			return pkgerrors.AtStep(stepEmitEvent, err)
		}
		result = order
		return nil
	})

	outcome := outcomeFor(err)
	s.metrics.ObserveCheckout(outcome, s.now().Sub(started))
	if err != nil {
		err = pkgerrors.ClassifyStore(err, "checkout failed")
		if outcome == metrics.OutcomeTransient || outcome == metrics.OutcomeError {
			s.logg.Error(ctx, "checkout.failed", err)
		}
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": result.ID.String(),
		"total":    result.Total.StringFixed(2),
		"lines":    len(result.Lines),
	})
	s.logg.Info(logCtx, "checkout.completed")
	return result, nil
}

func (s *service) buildOrder(ctx context.Context, products productSource, customerID int64, lines []models.CartLine, input CheckoutInput) (*models.Order, error) {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	catalog, err := products.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	// microsecond precision matches timestamptz and the order history cursor
	now := s.now().UTC().Truncate(time.Microsecond)
	// the total is rounded once over the exact sum; line subtotals are rounded
	// separately for display and storage
	sum := decimal.Zero
	orderLines := make([]models.OrderLine, 0, len(lines))
	for i, l := range lines {
		p := catalog[l.ProductID]
		exact := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		sum = sum.Add(exact)
		orderLines = append(orderLines, models.OrderLine{
			ProductID:           p.ID,
			ProductName:         p.Name,
			Quantity:            l.Quantity,
			UnitPriceAtPurchase: p.Price.Round(2),
			LineSubtotal:        exact.Round(2),
			// distinct timestamps keep purchase order stable when read back
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}

	return &models.Order{
		CustomerID:      customerID,
		SellerID:        s.opts.DefaultSellerID,
		Total:           orderTotal(sum),
		Status:          enums.OrderStatusCompleted,
		PaymentMethod:   orDefault(input.PaymentMethod, s.opts.DefaultPaymentMethod),
		DeliveryAddress: orDefault(input.DeliveryAddress, s.opts.DefaultDeliveryAddress),
		Lines:           orderLines,
		CreatedAt:       now,
	}, nil
}

// orderTotal rounds half away from zero to cents, which matches half-up for
// the non-negative amounts a cart can produce.
func orderTotal(sum decimal.Decimal) decimal.Decimal {
	return sum.Round(2)
}

func orderCreatedEvent(order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderCreatedLine, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, payloads.OrderCreatedLine{
			ProductID:    l.ProductID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPriceAtPurchase,
			LineSubtotal: l.LineSubtotal,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{CustomerID: order.CustomerID},
		OccurredAt:    order.CreatedAt,
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			CustomerID:      order.CustomerID,
			SellerID:        order.SellerID,
			Total:           order.Total,
			PaymentMethod:   order.PaymentMethod,
			DeliveryAddress: order.DeliveryAddress,
			Lines:           lines,
			CreatedAt:       order.CreatedAt,
		},
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func outcomeFor(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeEmptyCart:
			return metrics.OutcomeEmptyCart
		case pkgerrors.CodeNotFound:
			return metrics.OutcomeNotFound
		case pkgerrors.CodeDependency:
			return metrics.OutcomeTransient
		}
		return metrics.OutcomeError
	}
	if pkgerrors.IsTransientStore(err) {
		return metrics.OutcomeTransient
	}
	return metrics.OutcomeError
}
