package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cartdash/cartdash-backend/internal/orders"
	"github.com/cartdash/cartdash-backend/pkg/db/models"
	"github.com/cartdash/cartdash-backend/pkg/enums"
	"github.com/cartdash/cartdash-backend/pkg/logger"
	"github.com/cartdash/cartdash-backend/pkg/outbox"
	"github.com/cartdash/cartdash-backend/pkg/outbox/payloads"
)

const defaultSweepBatch = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OfferTimeoutJobParams configure the stale offer sweeper.
type OfferTimeoutJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    orders.Repository
	Outbox    outboxEmitter
	OfferTTL  time.Duration
	BatchSize int
}

// NewOfferTimeoutJob builds the cron job that expires offers no partner
// answered within the configured TTL, returning the order to the queue.
func NewOfferTimeoutJob(params OfferTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OfferTTL <= 0 {
		return nil, fmt.Errorf("offer ttl must be positive")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatch
	}
	return &offerTimeoutJob{
		logg:      params.Logger,
		db:        params.DB,
		orders:    params.Orders,
		outbox:    params.Outbox,
		offerTTL:  params.OfferTTL,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type offerTimeoutJob struct {
	logg      *logger.Logger
	db        txRunner
	orders    orders.Repository
	outbox    outboxEmitter
	offerTTL  time.Duration
	batchSize int
	now       func() time.Time
}

func (j *offerTimeoutJob) Name() string { return "offer-timeout" }

func (j *offerTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.offerTTL)
	stale, err := j.orders.FindStaleOffers(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale offers: %w", err)
	}
	count := 0
	var errs []error
	for _, order := range stale {
		if err := j.expireOffer(ctx, order.ID, cutoff); err != nil {
			// One stuck order must not block the rest of the sweep.
			errs = append(errs, fmt.Errorf("expire offer for order %s: %w", order.ID, err))
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count, "cutoff": cutoff})
	j.logg.Info(logCtx, "offer timeout sweep complete")
	return multierr.Combine(errs...)
}

func (j *offerTimeoutJob) expireOffer(ctx context.Context, orderID uuid.UUID, cutoff time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		current, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			return err
		}
		// A response may have landed between the scan and this
		// transaction; only still-stale offers are expired.
		if !isStaleOffer(current, cutoff) {
			return nil
		}
		partnerID := *current.AssignedPartnerID
		now := j.now().UTC()
		if err := repo.UpdateOrder(ctx, current.ID, map[string]any{
			"assignment_status":        enums.AssignmentStatusExpired,
			"assigned_partner_id":      nil,
			"last_rejected_partner_id": partnerID,
		}); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Data: payloads.OfferExpiredEvent{
				OrderID:   current.ID,
				PartnerID: partnerID,
				OfferedAt: derefTime(current.AssignedAt),
				ExpiredAt: now,
			},
		})
	})
}

func isStaleOffer(order *models.Order, cutoff time.Time) bool {
	if order.AssignmentStatus == nil || *order.AssignmentStatus != enums.AssignmentStatusOffered {
		return false
	}
	if order.AssignedPartnerID == nil || order.AssignedAt == nil {
		return false
	}
	return order.AssignedAt.Before(cutoff)
}

func derefTime(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
