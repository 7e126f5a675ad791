package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/outbox/payloads"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:outboxtest?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	outboxEvents := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	outboxDLQ := `
CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(outboxEvents).Error)
	require.NoError(t, db.Exec(outboxDLQ).Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_events").Error)
	require.NoError(t, db.Exec("DELETE FROM outbox_dlq").Error)
	return db
}

func TestEmitWritesEnvelopeRow(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	partnerID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventPartnerOffered,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data: payloads.PartnerOfferedEvent{
			OrderID:   orderID,
			PartnerID: partnerID,
			OfferedAt: time.Now().UTC(),
		},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.EventPartnerOffered, row.EventType)
	assert.Equal(t, orderID, row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)

	var payload payloads.PartnerOfferedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, partnerID, payload.PartnerID)
}

func TestEmitIfNotExistsDeduplicates(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	orderID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventOfferExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          payloads.OfferExpiredEvent{OrderID: orderID},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := svc.EmitIfNotExists(context.Background(), tx, event); err != nil {
			return err
		}
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	other := event
	other.AggregateID = uuid.New()
	other.Data = payloads.OfferExpiredEvent{OrderID: other.AggregateID}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, other)
	}))
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryAttemptLifecycle(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"data":{}}`),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, row)
	}))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		return repo.MarkFailedTx(tx, rows[0].ID, assert.AnError)
	}))

	var stored models.OutboxEvent
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.Equal(t, 1, stored.AttemptCount)
	require.NotNil(t, stored.LastError)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkTerminalTx(tx, row.ID, assert.AnError, 3)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	}))

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublishedTx(tx, row.ID)
	}))
	require.NoError(t, db.First(&stored, "id = ?", row.ID).Error)
	assert.NotNil(t, stored.PublishedAt)
}

func TestDLQInsertTruncatesLongErrors(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewDLQRepository(db)

	long := strings.Repeat("x", maxDLQErrorLen+100)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &long,
		AttemptCount:  10,
		FailedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, entry)
	}))

	stored, err := repo.FindByEventID(context.Background(), entry.EventID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)

	rows, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
