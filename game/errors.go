/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"

	"github.com/Seednode/pricebox/sets"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrRoomClosed   = errors.New("room closed")
)

// ActionError explains why an action was refused. It is reported back to
// the caller as a rejected event and never changes room state.
type ActionError struct {
	Action string
	Err    error
	Msg    string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Action, e.Err, e.Msg)
}

func (e *ActionError) Unwrap() error { return e.Err }

// Kind is the wire name of the error class.
func (e *ActionError) Kind() string {
	return errorKind(e.Err)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, sets.ErrNotFound), errors.Is(err, ErrRoomClosed):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}

func reject(action string, kind error, format string, args ...any) *ActionError {
	return &ActionError{Action: action, Err: kind, Msg: fmt.Sprintf(format, args...)}
}
