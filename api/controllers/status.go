package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cartdash/cartdash-backend/api/responses"
	"github.com/cartdash/cartdash-backend/api/validators"
	"github.com/cartdash/cartdash-backend/internal/tracking"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/logger"
)

type updateStatusRequest struct {
	Status             string           `json:"status" validate:"required,max=64"`
	Location           *locationPayload `json:"location,omitempty"`
	Notes              string           `json:"notes,omitempty" validate:"max=1000"`
	CODCollectedAmount *decimal.Decimal `json:"cod_collected_amount,omitempty"`
}

// UpdateOrderStatus advances the delivery or return flow for an order. The
// status field decides which flow the transition engine routes it to.
func UpdateOrderStatus(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking service unavailable"))
			return
		}

		userID, err := actorUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partnerID, err := actorPartnerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.UpdateStatus(ctx, tracking.UpdateStatusInput{
			OrderID:      orderID,
			PartnerID:    partnerID,
			Status:       req.Status,
			Location:     req.Location.toPoint(),
			Notes:        validators.SanitizeString(req.Notes, 1000),
			CODCollected: req.CODCollectedAmount,
			ActorUserID:  userID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
