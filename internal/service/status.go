package service

import (
	"fmt"

	apperrors "localbiz/internal/errors"
	"localbiz/internal/model"
)

var bookingTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending:   {model.BookingStatusConfirmed, model.BookingStatusCancelled},
	model.BookingStatusConfirmed: {model.BookingStatusCompleted, model.BookingStatusCancelled},
	model.BookingStatusCompleted: nil,
	model.BookingStatusCancelled: nil,
}

var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusConfirmed, model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered},
	model.OrderStatusDelivered:  nil,
	model.OrderStatusCancelled:  nil,
}

// checkBookingTransition rejects unknown target statuses and moves off the booking DAG.
func checkBookingTransition(from, to model.BookingStatus) error {
	if _, ok := bookingTransitions[to]; !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, to)
	}
	for _, next := range bookingTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: booking %s -> %s", apperrors.ErrInvalidTransition, from, to)
}

// checkOrderTransition rejects unknown target statuses and moves off the order DAG.
func checkOrderTransition(from, to model.OrderStatus) error {
	if _, ok := orderTransitions[to]; !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, to)
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: order %s -> %s", apperrors.ErrInvalidTransition, from, to)
}
