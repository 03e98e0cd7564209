package cart

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/janiele376/projeto-pet-shop-fullstack/internal/guestcart"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/metrics"
)

type guestSource interface {
	Load(ctx context.Context, sessionID string) (*guestcart.Cart, error)
	Save(ctx context.Context, sessionID string, cart *guestcart.Cart) error
	Clear(ctx context.Context, sessionID string) error
	AcquireMerge(ctx context.Context, sessionID string) (bool, error)
	ReleaseMerge(ctx context.Context, sessionID string) error
}

type lineAdder interface {
	AddLine(ctx context.Context, customerID, productID int64, quantity int) (*LineView, error)
}

// MergeLine is one guest line submitted for merge.
type MergeLine struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=9999"`
}

// MergeInput names the guest cart to fold into the customer's cart. Lines
// sent by the client take precedence over the server-side snapshot.
type MergeInput struct {
	GuestSessionID string
	Lines          []MergeLine
}

// SkippedLine reports a guest line that could not be merged.
type SkippedLine struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// MergeResult counts the guest lines added to the customer's cart and lists
// the ones left out.
type MergeResult struct {
	Merged  int           `json:"merged"`
	Skipped []SkippedLine `json:"skipped"`
}

// Merger folds a guest cart into a customer's persistent cart after login.
type Merger struct {
	carts   lineAdder
	guests  guestSource
	logg    *logger.Logger
	metrics *metrics.CartMetrics
}

// NewMerger wires the cart service used for each line and the store holding
// guest snapshots. Metrics are optional.
func NewMerger(carts lineAdder, guests guestSource, logg *logger.Logger, m *metrics.CartMetrics) (*Merger, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if guests == nil {
		return nil, fmt.Errorf("guest cart store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Merger{carts: carts, guests: guests, logg: logg, metrics: m}, nil
}

// Merge adds every guest line to the customer's cart. Lines whose product is
// gone or invalid are skipped. The guest snapshot is consumed before any line
// is applied, so a line is never added twice: when a store failure stops the
// merge, only the lines not yet applied are written back for a retry. A
// concurrent merge of the same session is a no-op.
func (m *Merger) Merge(ctx context.Context, customerID int64, input MergeInput) (*MergeResult, error) {
	if err := validateCustomer(customerID); err != nil {
		return nil, err
	}
	result := &MergeResult{Skipped: []SkippedLine{}}

	session := strings.TrimSpace(input.GuestSessionID)
	if session != "" {
		if err := guestcart.ValidateSessionID(session); err != nil {
			return nil, err
		}
		ctx = m.logg.WithGuestSession(ctx, session)
		acquired, err := m.guests.AcquireMerge(ctx, session)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire merge lock")
		}
		if !acquired {
			m.logg.Info(ctx, "cart.merge.already_running")
			return result, nil
		}
	}

	lines, err := m.claimLines(ctx, session, input.Lines)
	if err != nil {
		m.release(ctx, session)
		return nil, err
	}

	var skipped error
	for i, line := range lines {
		if _, err := m.carts.AddLine(ctx, customerID, line.ProductID, line.Quantity); err != nil {
			if !skippable(err) {
				m.metrics.AddMergeLines(metrics.OutcomeMerged, result.Merged)
				return nil, m.abort(ctx, session, lines[i:], result.Merged, err)
			}
			skipped = multierr.Append(skipped, fmt.Errorf("product %d: %w", line.ProductID, err))
			result.Skipped = append(result.Skipped, SkippedLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Reason:    reason(err),
			})
			continue
		}
		result.Merged++
	}

	if skipped != nil {
		warnCtx := m.logg.WithFields(ctx, map[string]any{
			"skipped_count": len(result.Skipped),
			"skipped":       skipped.Error(),
		})
		m.logg.Warn(warnCtx, "cart.merge.lines_skipped")
	}
	m.metrics.AddMergeLines(metrics.OutcomeMerged, result.Merged)
	m.metrics.AddMergeLines(metrics.OutcomeSkipped, len(result.Skipped))
	return result, nil
}

// claimLines returns the lines to merge and removes the guest snapshot. If the
// snapshot cannot be removed nothing has been applied yet and the merge stops.
func (m *Merger) claimLines(ctx context.Context, session string, submitted []MergeLine) ([]guestcart.Line, error) {
	if session == "" {
		return toGuestLines(submitted), nil
	}
	var lines []guestcart.Line
	if len(submitted) > 0 {
		lines = toGuestLines(submitted)
	} else {
		snapshot, err := m.guests.Load(ctx, session)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		lines = snapshot.Lines
	}
	if err := m.guests.Clear(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear guest cart")
	}
	return lines, nil
}

// abort writes the unapplied lines back as the guest snapshot and reports them
// so the client can retry just those.
func (m *Merger) abort(ctx context.Context, session string, pending []guestcart.Line, merged int, cause error) error {
	defer m.release(ctx, session)

	remaining := make([]MergeLine, 0, len(pending))
	for _, l := range pending {
		remaining = append(remaining, MergeLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	details := map[string]any{"merged": merged, "remaining": remaining}

	if session != "" {
		if err := m.guests.Save(ctx, session, &guestcart.Cart{Lines: pending}); err != nil {
			m.logg.Error(ctx, "cart.merge.restore_guest_failed", err)
			details["restored"] = false
		} else {
			details["restored"] = true
		}
	}

	code, message := pkgerrors.CodeDependency, "merge guest cart"
	if typed := pkgerrors.As(cause); typed != nil {
		code, message = typed.Code(), typed.Message()
	}
	return pkgerrors.Wrap(code, cause, message).WithDetails(details)
}

func toGuestLines(submitted []MergeLine) []guestcart.Line {
	lines := make([]guestcart.Line, 0, len(submitted))
	for _, l := range submitted {
		lines = append(lines, guestcart.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return lines
}

func (m *Merger) release(ctx context.Context, session string) {
	if session == "" {
		return
	}
	if err := m.guests.ReleaseMerge(ctx, session); err != nil {
		m.logg.Error(ctx, "cart.merge.release_lock_failed", err)
	}
}

func skippable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound, pkgerrors.CodeValidation:
		return true
	}
	return false
}

func reason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	return err.Error()
}
