package items

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stockledger/api/controllers/dto"
	"github.com/angelmondragon/stockledger/api/responses"
	"github.com/angelmondragon/stockledger/api/validators"
	"github.com/angelmondragon/stockledger/internal/catalog"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

const maxReasonLen = 500

type registerRequest struct {
	SKU        string `json:"sku" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Zone       string `json:"zone" validate:"max=32"`
	Rack       string `json:"rack" validate:"max=32"`
	Bin        string `json:"bin" validate:"max=32"`
	CurrentQty int    `json:"current_qty" validate:"gte=0"`
	SafetyQty  int    `json:"safety_qty" validate:"gte=0"`
}

func (r registerRequest) toInput() catalog.RegisterInput {
	return catalog.RegisterInput{
		SKU:        r.SKU,
		Name:       r.Name,
		Zone:       r.Zone,
		Rack:       r.Rack,
		Bin:        r.Bin,
		CurrentQty: r.CurrentQty,
		SafetyQty:  r.SafetyQty,
	}
}

// Register adds a SKU to the catalog. A duplicate SKU answers 409.
func Register(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Register(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto.NewItem(stock.ItemView{
			Item:         *item,
			AvailableQty: item.CurrentQty,
		}))
	}
}

// List returns the whole catalog with derived reserved and available figures.
func List(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": dto.NewItems(views)})
	}
}

func Detail(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := skuParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, found, err := svc.Find(r.Context(), sku)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeNotFound, "item %s not found", sku))
			return
		}
		responses.WriteSuccess(w, dto.NewItem(*view))
	}
}

// Transactions pages through one SKU's ledger, newest first.
func Transactions(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := skuParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Ledger(r.Context(), sku, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewTransactionPage(page))
	}
}

type adjustRequest struct {
	QtyChange *int   `json:"qty_change" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=inbound outbound adjustment"`
	Reason    string `json:"reason" validate:"max=500"`
}

func Adjust(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := skuParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseTransactionType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type"))
			return
		}

		entry, err := svc.AdjustStock(r.Context(), stock.AdjustInput{
			SKU:       sku,
			QtyChange: *req.QtyChange,
			Type:      kind,
			Reason:    validators.SanitizeString(req.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transaction": dto.NewTransaction(*entry)})
	}
}

type physicalCountRequest struct {
	PhysicalQty *int   `json:"physical_qty" validate:"required,gte=0"`
	Reason      string `json:"reason" validate:"max=500"`
}

// PhysicalCount sets the on-hand quantity to a counted value. When the count
// matches nothing is recorded and changed is false.
func PhysicalCount(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := skuParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req physicalCountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SetPhysicalCount(r.Context(), stock.PhysicalCountInput{
			SKU:         sku,
			PhysicalQty: *req.PhysicalQty,
			Reason:      validators.SanitizeString(req.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := map[string]any{"changed": entry != nil, "transaction": nil}
		if entry != nil {
			payload["transaction"] = dto.NewTransaction(*entry)
		}
		responses.WriteSuccess(w, payload)
	}
}

type moveRequest struct {
	Zone   string `json:"zone" validate:"required,max=32"`
	Rack   string `json:"rack" validate:"required,max=32"`
	Bin    string `json:"bin" validate:"required,max=32"`
	Reason string `json:"reason" validate:"max=500"`
}

func Move(svc stock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku, err := skuParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req moveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.MoveLocation(r.Context(), stock.MoveInput{
			SKU:    sku,
			Zone:   req.Zone,
			Rack:   req.Rack,
			Bin:    req.Bin,
			Reason: validators.SanitizeString(req.Reason, maxReasonLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"transaction": dto.NewTransaction(*entry)})
	}
}

func skuParam(r *http.Request) (string, error) {
	sku := strings.TrimSpace(chi.URLParam(r, "sku"))
	if sku == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	return sku, nil
}
