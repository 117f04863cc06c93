package market

import "errors"

// Standard errors for the marketplace core. Every failed operation leaves
// prior state unchanged; none of these are fatal to the process.
var (
	// ErrValidation is returned when a required input is missing or malformed.
	ErrValidation = errors.New("missing required input")
	// ErrNotFound is returned when no request exists with the given id.
	ErrNotFound = errors.New("request not found")
	// ErrInvalidState is returned when the operation is not legal in the
	// request's current lifecycle state.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrPermission is returned when the actor is not authorized for the action.
	ErrPermission = errors.New("actor not authorized for this action")
	// ErrLocationUnavailable is returned when location acquisition failed.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrNoActiveCode is returned when no passcode record exists for the request.
	ErrNoActiveCode = errors.New("no active passcode")
	// ErrCodeMismatch is returned when the submitted passcode is wrong.
	ErrCodeMismatch = errors.New("passcode mismatch")
	// ErrCodeExpired is returned when a correct passcode is submitted after expiry.
	ErrCodeExpired = errors.New("passcode expired")
)
