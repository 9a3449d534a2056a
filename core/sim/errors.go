package sim

import "errors"

// Errors returned by the command surface. The snapshot is left unchanged
// whenever one of them is returned.
var (
	ErrChargeWhileMoving = errors.New("cannot start charging while moving")
	ErrUnknownProfile    = errors.New("unknown profile")
	ErrProfileExists     = errors.New("profile already exists")
	ErrEmptyProfileName  = errors.New("profile name is empty")
	ErrLastProfile       = errors.New("cannot delete the last profile")
	ErrUnknownMode       = errors.New("unknown drive mode")
	ErrUnknownTrip       = errors.New("unknown trip")
	ErrUnknownCommand    = errors.New("unknown command")
	ErrInvalidArgument   = errors.New("invalid argument")
)
