package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/cartdash/cartdash-backend/api/middleware"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

func actorUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user identity")
	}
	return id, nil
}

func actorBranchID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.BranchIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid branch identity")
	}
	return id, nil
}

func actorPartnerID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.PartnerIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "partner context required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid partner identity")
	}
	return id, nil
}

// locationPayload is the optional GPS fix partners attach to mutations.
type locationPayload struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (l *locationPayload) toPoint() *types.GeographyPoint {
	if l == nil {
		return nil
	}
	return &types.GeographyPoint{Lat: l.Lat, Lng: l.Lng}
}
