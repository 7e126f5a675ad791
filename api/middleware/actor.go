package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cartdash/cartdash-backend/api/responses"
	pkgerrors "github.com/cartdash/cartdash-backend/pkg/errors"
	"github.com/cartdash/cartdash-backend/pkg/logger"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxBranchID  contextKey = "branch_id"
	ctxPartnerID contextKey = "partner_id"
)

// Identity headers are stamped by the gateway in front of this service.
const (
	headerUserID    = "X-User-Id"
	headerRole      = "X-Actor-Role"
	headerBranchID  = "X-Branch-Id"
	headerPartnerID = "X-Partner-Id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func BranchIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxBranchID).(string); ok {
		return v
	}
	return ""
}

func PartnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPartnerID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the actor role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithBranchID injects the branch identifier into the context.
func WithBranchID(ctx context.Context, branchID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBranchID, branchID)
}

// WithPartnerID injects the delivery partner identifier into the context.
func WithPartnerID(ctx context.Context, partnerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPartnerID, partnerID)
}

// ActorContext lifts gateway identity headers into the request context.
// Requests without a user identity are rejected.
func ActorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(headerUserID))
			if userID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
				return
			}
			ctx := WithUserID(r.Context(), userID)
			if role := strings.TrimSpace(r.Header.Get(headerRole)); role != "" {
				ctx = WithRole(ctx, strings.ToLower(role))
			}
			if branchID := strings.TrimSpace(r.Header.Get(headerBranchID)); branchID != "" {
				ctx = WithBranchID(ctx, branchID)
			}
			if partnerID := strings.TrimSpace(r.Header.Get(headerPartnerID)); partnerID != "" {
				ctx = WithPartnerID(ctx, partnerID)
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"user_id": userID})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BranchContext rejects requests that carry no branch identity.
func BranchContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if BranchIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "branch context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PartnerContext rejects requests that carry no partner identity.
func PartnerContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PartnerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "partner context missing"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
