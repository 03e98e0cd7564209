package guestcart

import (
	"net/http"
	"time"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/middleware"
	"github.com/janiele376/projeto-pet-shop-fullstack/api/responses"
	"github.com/janiele376/projeto-pet-shop-fullstack/api/validators"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/guestcart"
	pkgerrors "github.com/janiele376/projeto-pet-shop-fullstack/pkg/errors"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
)

type addItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gte=1,lte=9999"`
}

type lineResponse struct {
	ProductID int64     `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	Subtotal  string    `json:"subtotal"`
	AddedAt   time.Time `json:"addedAt"`
}

type cartResponse struct {
	Lines     []lineResponse `json:"lines"`
	Total     string         `json:"total"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

func newCartResponse(c *guestcart.Cart) cartResponse {
	out := cartResponse{Lines: []lineResponse{}, Total: "0.00"}
	if c == nil {
		return out
	}
	for _, line := range c.Lines {
		out.Lines = append(out.Lines, lineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal().StringFixed(2),
			AddedAt:   line.AddedAt,
		})
	}
	out.Total = c.Total().StringFixed(2)
	if !c.UpdatedAt.IsZero() {
		updated := c.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

func Read(svc guestcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest cart unavailable"))
			return
		}
		session, err := sessionFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.Read(r.Context(), session)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// AddItem snapshots the product's current name and price into the guest cart.
func AddItem(svc guestcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest cart unavailable"))
			return
		}
		session, err := sessionFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.Add(r.Context(), session, payload.ProductID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(c))
	}
}

func RemoveItem(svc guestcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest cart unavailable"))
			return
		}
		session, err := sessionFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseInt64Param(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		c, err := svc.Remove(r.Context(), session, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

func Clear(svc guestcart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest cart unavailable"))
			return
		}
		session, err := sessionFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Clear(r.Context(), session); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(nil))
	}
}

func sessionFromContext(r *http.Request) (string, error) {
	session := middleware.GuestSessionFromContext(r.Context())
	if session == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "guest session required")
	}
	return session, nil
}
