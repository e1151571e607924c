package domain

import (
	"errors"
	"fmt"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusPending    RegistrationStatus = "pending"
	StatusRegistered RegistrationStatus = "registered"
	StatusWaitlisted RegistrationStatus = "waitlisted"
	StatusCancelled  RegistrationStatus = "cancelled"
)

var (
	ErrUnknownStatus  = errors.New("unknown registration status")
	ErrTerminalStatus = errors.New("registration is cancelled")
)

// ParseStatus validates s as a registration status.
func ParseStatus(s string) (RegistrationStatus, error) {
	switch st := RegistrationStatus(s); st {
	case StatusPending, StatusRegistered, StatusWaitlisted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// Active reports whether the registration still holds or awaits a place.
func (s RegistrationStatus) Active() bool {
	return s != StatusCancelled
}

// InitialStatus decides the status of a new registration. Approval wins
// over capacity; a full event waitlists instead of rejecting.
func InitialStatus(requiresApproval bool, maxParticipants *int, registered int) RegistrationStatus {
	if requiresApproval {
		return StatusPending
	}
	if maxParticipants != nil && registered >= *maxParticipants {
		return StatusWaitlisted
	}
	return StatusRegistered
}

// ValidateTransition checks from -> to. Cancelled is terminal, every other
// state may move to any state, and staying put is allowed.
func ValidateTransition(from, to RegistrationStatus) error {
	if _, err := ParseStatus(string(to)); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if from == StatusCancelled {
		return ErrTerminalStatus
	}
	return nil
}

// ParticipantDelta is how the event's registered count moves for from -> to.
func ParticipantDelta(from, to RegistrationStatus) int {
	switch {
	case from != StatusRegistered && to == StatusRegistered:
		return 1
	case from == StatusRegistered && to != StatusRegistered:
		return -1
	default:
		return 0
	}
}
