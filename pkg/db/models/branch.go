package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartdash/cartdash-backend/pkg/types"
)

// Branch is the fulfillment location orders ship from.
type Branch struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string                `gorm:"column:name;not null"`
	Location  *types.GeographyPoint `gorm:"column:location;type:geography(Point,4326)"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
