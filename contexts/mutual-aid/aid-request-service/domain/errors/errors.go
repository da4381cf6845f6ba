package errors

import "errors"

var (
	ErrInvalidRequestInput     = errors.New("invalid aid request input")
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrRequestNotFound         = errors.New("aid request not found")
	ErrNotRequestOwner         = errors.New("caller does not own this aid request")
	ErrOpenRequestExists       = errors.New("an open aid request already exists for this requester")
	ErrCannotCancel            = errors.New("aid request status does not allow cancellation")
	ErrInvalidStatusTransition = errors.New("invalid aid request status transition")
	ErrRequestPersistence      = errors.New("aid request persistence failure")
)
