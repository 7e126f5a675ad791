package partners

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/types"
)

func setupPartnersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:partnerstest?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS delivery_partners (
  id TEXT PRIMARY KEY,
  branch_id TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  approved INTEGER NOT NULL DEFAULT 0,
  availability TEXT NOT NULL DEFAULT 'unavailable',
  current_location TEXT,
  last_seen_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec("DELETE FROM delivery_partners").Error)
	return db
}

func seedPartner(t *testing.T, db *gorm.DB, mutate func(*models.DeliveryPartner)) *models.DeliveryPartner {
	t.Helper()
	partner := &models.DeliveryPartner{
		ID:           uuid.New(),
		BranchID:     uuid.New(),
		Name:         "Ravi K",
		Approved:     true,
		Availability: enums.PartnerAvailable,
	}
	if mutate != nil {
		mutate(partner)
	}
	require.NoError(t, db.Create(partner).Error)
	return partner
}

func TestFindPartner(t *testing.T) {
	db := setupPartnersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partner := seedPartner(t, db, nil)

	found, err := repo.FindPartner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, partner.ID, found.ID)
	assert.True(t, found.IsEligible(partner.BranchID))
	assert.False(t, found.IsEligible(uuid.New()))

	_, err = repo.FindPartner(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateAvailability(t *testing.T) {
	db := setupPartnersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partner := seedPartner(t, db, nil)

	require.NoError(t, repo.UpdateAvailability(ctx, partner.ID, enums.PartnerUnavailable))

	found, err := repo.FindPartner(ctx, partner.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PartnerUnavailable, found.Availability)
	assert.False(t, found.IsEligible(partner.BranchID))
}

func TestUpdateLocationStampsLastSeen(t *testing.T) {
	db := setupPartnersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	partner := seedPartner(t, db, func(p *models.DeliveryPartner) {
		p.LastSeenAt = nil
	})

	require.NoError(t, repo.UpdateLocation(ctx, partner.ID, types.GeographyPoint{Lat: 13.05, Lng: 80.25}))

	found, err := repo.FindPartner(ctx, partner.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastSeenAt)
	require.NotNil(t, found.CurrentLocation)
	assert.InDelta(t, 13.05, found.CurrentLocation.Lat, 0.0001)
}
