package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartdash/cartdash-backend/api/middleware"
	"github.com/cartdash/cartdash-backend/api/responses"
	"github.com/cartdash/cartdash-backend/api/validators"
	"github.com/cartdash/cartdash-backend/internal/assignment"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/logger"
)

type assignOrderRequest struct {
	PartnerID string           `json:"partner_id" validate:"required,uuid"`
	Location  *locationPayload `json:"location,omitempty"`
}

type respondOrderRequest struct {
	Location *locationPayload `json:"location,omitempty"`
	Reason   string           `json:"reason,omitempty" validate:"max=500"`
}

type reassignOrderRequest struct {
	PartnerID string           `json:"partner_id" validate:"required,uuid"`
	Location  *locationPayload `json:"location,omitempty"`
	Override  bool             `json:"override,omitempty"`
}

// AssignOrder offers an order to a delivery partner on behalf of a branch.
func AssignOrder(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		userID, err := actorUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		branchID, err := actorBranchID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req assignOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partnerID, err := validators.ParseUUID(req.PartnerID, "partner_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Assign(ctx, assignment.AssignInput{
			OrderID:     orderID,
			PartnerID:   partnerID,
			Location:    req.Location.toPoint(),
			ActorUserID: userID,
			BranchID:    branchID,
			ActorRole:   middleware.RoleFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// AcceptOrder records the assigned partner's acceptance of an offer.
func AcceptOrder(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return respondHandler(svc, logg, assignment.Service.Accept)
}

// RejectOrder records the assigned partner's rejection of an offer.
func RejectOrder(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return respondHandler(svc, logg, assignment.Service.Reject)
}

func respondHandler(svc assignment.Service, logg *logger.Logger, respond func(assignment.Service, context.Context, assignment.RespondInput) (*assignment.AssignmentState, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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

		// Accept and reject bodies are optional; partners without a GPS fix
		// or a reason can POST with no payload.
		var req respondOrderRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		state, err := respond(svc, ctx, assignment.RespondInput{
			OrderID:     orderID,
			PartnerID:   partnerID,
			Location:    req.Location.toPoint(),
			Reason:      validators.SanitizeString(req.Reason, 500),
			ActorUserID: userID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}

// ReassignOrder moves an order to a different partner after a rejection or
// timeout. Managers can set override to repeat the previously rejected partner.
func ReassignOrder(svc assignment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
			return
		}

		userID, err := actorUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		branchID, err := validators.ParseUUID(chi.URLParam(r, "branchId"), "branchId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if contextBranch := middleware.BranchIDFromContext(ctx); contextBranch != branchID.String() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch context mismatch"))
			return
		}
		orderID, err := validators.ParseUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req reassignOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partnerID, err := validators.ParseUUID(req.PartnerID, "partner_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		state, err := svc.Reassign(ctx, assignment.ReassignInput{
			BranchID:     branchID,
			OrderID:      orderID,
			NewPartnerID: partnerID,
			Location:     req.Location.toPoint(),
			Override:     req.Override,
			ActorUserID:  userID,
			ActorRole:    middleware.RoleFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, state)
	}
}
