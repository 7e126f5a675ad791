package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their
// tracking history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	AppendTrackingEvent(ctx context.Context, event *models.TrackingEvent) error
	ListTrackingEvents(ctx context.Context, orderID uuid.UUID) ([]models.TrackingEvent, error)
	ListUnassignedOrders(ctx context.Context, branchID uuid.UUID, params pagination.Params) (*OrderQueueList, error)
	ListPartnerOrders(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*OrderQueueList, error)
	FindStaleOffers(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
