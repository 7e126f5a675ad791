package controllers

import (
	"net/http"

	"github.com/cartdash/cartdash-backend/api/middleware"
	"github.com/cartdash/cartdash-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func BranchPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "branch", "status": "ok"}
		if branch := middleware.BranchIDFromContext(r.Context()); branch != "" {
			payload["branch_id"] = branch
		}
		responses.WriteSuccess(w, payload)
	}
}

func PartnerPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "partner", "status": "ok"}
		if partner := middleware.PartnerIDFromContext(r.Context()); partner != "" {
			payload["partner_id"] = partner
		}
		responses.WriteSuccess(w, payload)
	}
}
