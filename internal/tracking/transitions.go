// Package tracking enforces the forward-only delivery and return status
// flows and appends the immutable tracking history for each transition.
package tracking

import "github.com/cartdash/cartdash-backend/pkg/enums"

// deliveryTransitions is the allowed next-set per delivery status. A
// lookup table rather than a linear successor, since failed_delivery is
// reachable from every non-terminal in-flight status.
var deliveryTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusAccepted:       {enums.OrderStatusPickedUp, enums.OrderStatusFailedDelivery},
	enums.OrderStatusPickedUp:       {enums.OrderStatusInTransit, enums.OrderStatusFailedDelivery},
	enums.OrderStatusInTransit:      {enums.OrderStatusOutForDelivery, enums.OrderStatusFailedDelivery},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered, enums.OrderStatusFailedDelivery},
}

// returnTransitions is the allowed next-set per return status. The empty
// key admits the initial pending_pickup entry once a return is requested.
var returnTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	"":                                  {enums.ReturnStatusPendingPickup},
	enums.ReturnStatusPendingPickup:     {enums.ReturnStatusPickedUpForReturn, enums.ReturnStatusFailed},
	enums.ReturnStatusPickedUpForReturn: {enums.ReturnStatusInTransit, enums.ReturnStatusFailed},
	enums.ReturnStatusInTransit:         {enums.ReturnStatusCompleted, enums.ReturnStatusFailed},
}

// CanTransitionDelivery reports whether the delivery flow admits the move.
func CanTransitionDelivery(from, to enums.OrderStatus) bool {
	for _, candidate := range deliveryTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CanTransitionReturn reports whether the return flow admits the move.
// A nil current status means the return flow has not started yet.
func CanTransitionReturn(from *enums.ReturnStatus, to enums.ReturnStatus) bool {
	var key enums.ReturnStatus
	if from != nil {
		key = *from
	}
	for _, candidate := range returnTransitions[key] {
		if candidate == to {
			return true
		}
	}
	return false
}
