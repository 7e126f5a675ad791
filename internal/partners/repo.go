// Package partners persists the delivery partner registry consulted by
// the assignment coordinator.
package partners

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

// Repository defines persistence operations for delivery partners.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error)
	UpdateAvailability(ctx context.Context, partnerID uuid.UUID, availability enums.PartnerAvailability) error
	UpdateLocation(ctx context.Context, partnerID uuid.UUID, location types.GeographyPoint) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a partner repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.DeliveryPartner, error) {
	var partner models.DeliveryPartner
	err := r.db.WithContext(ctx).
		Where("id = ?", partnerID).
		First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *repository) UpdateAvailability(ctx context.Context, partnerID uuid.UUID, availability enums.PartnerAvailability) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryPartner{}).
		Where("id = ?", partnerID).
		Update("availability", availability).Error
}

func (r *repository) UpdateLocation(ctx context.Context, partnerID uuid.UUID, location types.GeographyPoint) error {
	return r.db.WithContext(ctx).
		Model(&models.DeliveryPartner{}).
		Where("id = ?", partnerID).
		Updates(map[string]any{
			"current_location": location,
			"last_seen_at":     time.Now().UTC(),
		}).Error
}
