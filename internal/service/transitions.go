package service

import (
	"fmt"

	"roomreserve/internal/domain"
	"roomreserve/internal/models"
)

type Operation string

const (
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpApprove Operation = "approve"
	OpCancel  Operation = "cancel"
)

// allowedTransitions maps (current status, operation) to the resulting status.
// The empty status stands for a reservation that is not persisted yet.
var allowedTransitions = map[models.Status]map[Operation]models.Status{
	"": {
		OpCreate: models.StatusPending,
	},
	models.StatusPending: {
		OpUpdate:  models.StatusPending,
		OpApprove: models.StatusApproved,
		OpCancel:  models.StatusCancelled,
	},
	models.StatusApproved:  {},
	models.StatusCancelled: {},
}

// rejectionReasons overrides the generic message for specific forbidden edges.
var rejectionReasons = map[models.Status]map[Operation]string{
	models.StatusApproved: {
		OpCancel: "cannot cancel approved reservation, contact a manager please",
	},
	models.StatusCancelled: {
		OpCancel: "cannot cancel the reservation, it was already cancelled",
	},
}

// Transition returns the status a reservation moves to when op is applied in
// status from, or an ErrInvalidState error describing why it is forbidden.
func Transition(from models.Status, op Operation) (models.Status, error) {
	if next, ok := allowedTransitions[from][op]; ok {
		return next, nil
	}
	if reason, ok := rejectionReasons[from][op]; ok {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidState, reason)
	}
	switch op {
	case OpUpdate:
		return "", fmt.Errorf("%w: cannot modify reservation in status %s", domain.ErrInvalidState, from)
	case OpCreate:
		return "", fmt.Errorf("%w: reservation already exists in status %s", domain.ErrInvalidState, from)
	default:
		return "", fmt.Errorf("%w: cannot %s reservation in status %s", domain.ErrInvalidState, op, from)
	}
}
