package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stockledger/api/controllers/dto"
	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/stock"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

type reserveLine struct {
	SKU  string `json:"sku" validate:"required,max=64"`
	Name string `json:"name" validate:"max=200"`
	Qty  int    `json:"qty" validate:"required,gt=0"`
}

type reserveRequest struct {
	Lines []reserveLine `json:"lines" validate:"required,min=1,dive"`
}

func (r reserveRequest) toLines() []stock.Line {
	lines := make([]stock.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, stock.Line{SKU: l.SKU, Name: l.Name, Qty: l.Qty})
	}
	return lines
}

// Reserve allocates stock for every line of an order or for none of them.
// A shortfall answers 409 with one failure message per line.
func Reserve(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reserveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Reserve(r.Context(), orderID, req.toLines())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if !res.OK {
			status = http.StatusConflict
		}
		responses.WriteSuccessStatus(w, status, dto.NewReserve(res))
	}
}

func Ship(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		res, err := svc.Ship(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(res))
	}
}

type releaseRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Release returns reserved stock to the pool. The body is optional.
func Release(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req releaseRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		res, err := svc.Release(r.Context(), orderID, validators.SanitizeString(req.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(res))
	}
}

// Allocations lists every allocation of the order whatever its status.
func Allocations(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.Allocations(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id":    orderID,
			"allocations": dto.NewAllocations(rows),
		})
	}
}

func orderIDParam(r *http.Request) (string, error) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return orderID, nil
}
