package enums

// OutboxEventType identifies the domain events emitted through the outbox.
type OutboxEventType string

const (
	EventPartnerOffered    OutboxEventType = "delivery.partner_offered"
	EventOfferAccepted     OutboxEventType = "delivery.offer_accepted"
	EventOfferRejected     OutboxEventType = "delivery.offer_rejected"
	EventOfferExpired      OutboxEventType = "delivery.offer_expired"
	EventPartnerReassigned OutboxEventType = "delivery.partner_reassigned"
	EventStatusChanged     OutboxEventType = "delivery.status_changed"
	EventReturnChanged     OutboxEventType = "delivery.return_status_changed"
)

// OutboxAggregateType identifies the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxDLQErrorReason classifies why an outbox row was parked.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)
