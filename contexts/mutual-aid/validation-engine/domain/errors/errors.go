package errors

import (
	"errors"
	"fmt"

	"almoner/contexts/mutual-aid/validation-engine/domain/eligibility"
)

var (
	ErrInvalidVoteInput         = errors.New("invalid validation vote input")
	ErrAuthenticationRequired   = errors.New("authentication required")
	ErrValidatorNotFound        = errors.New("validator profile not found")
	ErrValidatorNotQualified    = errors.New("validator does not meet qualification thresholds")
	ErrRequestNotFound          = errors.New("aid request not found")
	ErrInvalidRequestStatus     = errors.New("aid request does not accept validations in its current status")
	ErrCannotValidateOwnRequest = errors.New("validators cannot vote on their own aid request")
	ErrAlreadyValidated         = errors.New("validator has already voted on this aid request")
	ErrVoteNotFound             = errors.New("validation vote not found")
	ErrVotePersistenceFailure   = errors.New("validation vote could not be persisted")
)

// QualificationError wraps ErrValidatorNotQualified with the full threshold
// report for client display.
type QualificationError struct {
	Report eligibility.Report
}

func (e QualificationError) Error() string {
	return ErrValidatorNotQualified.Error()
}

func (e QualificationError) Unwrap() error {
	return ErrValidatorNotQualified
}

// StatusError wraps ErrInvalidRequestStatus with the request's current status.
type StatusError struct {
	CurrentStatus string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: current status %q", ErrInvalidRequestStatus.Error(), e.CurrentStatus)
}

func (e StatusError) Unwrap() error {
	return ErrInvalidRequestStatus
}
