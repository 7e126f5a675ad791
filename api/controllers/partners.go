package controllers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/api/responses"
	"github.com/cartdash/cartdash-backend/api/validators"
	"github.com/cartdash/cartdash-backend/internal/partners"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/logger"
)

type partnerAvailabilityRequest struct {
	Availability string `json:"availability" validate:"required,max=32"`
}

type partnerLocationRequest struct {
	Location locationPayload `json:"location" validate:"required"`
}

// PartnerProfile returns the authenticated partner's registry record.
func PartnerProfile(repo partners.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner registry unavailable"))
			return
		}
		partnerID, err := actorPartnerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partner, err := repo.FindPartner(ctx, partnerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "partner not found"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load partner"))
			return
		}
		responses.WriteSuccess(w, partner)
	}
}

// UpdatePartnerAvailability lets a partner flip between available and
// unavailable. Active deliveries flip the flag back on their own.
func UpdatePartnerAvailability(repo partners.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner registry unavailable"))
			return
		}
		partnerID, err := actorPartnerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req partnerAvailabilityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		availability, err := enums.ParsePartnerAvailability(req.Availability)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown availability").
				WithDetails(map[string]any{"availability": req.Availability}))
			return
		}
		if err := repo.UpdateAvailability(ctx, partnerID, availability); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update availability"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"partner_id": partnerID, "availability": availability})
	}
}

// UpdatePartnerLocation records the partner's latest GPS fix.
func UpdatePartnerLocation(repo partners.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partner registry unavailable"))
			return
		}
		partnerID, err := actorPartnerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req partnerLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		point := req.Location.toPoint()
		if err := repo.UpdateLocation(ctx, partnerID, *point); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update location"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"partner_id": partnerID, "location": point})
	}
}
