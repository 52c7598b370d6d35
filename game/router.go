/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/Seednode/pricebox/sets"
)

// SetSource is the part of the set repository a room reads from.
type SetSource interface {
	Get(ctx context.Context, id int64) (sets.Set, error)
}

// Router delivers actions to the room they address, creating the room only
// for a join.
type Router struct {
	rooms *Registry
}

func NewRouter(rooms *Registry) *Router {
	return &Router{rooms: rooms}
}

func (rt *Router) Rooms() *Registry { return rt.rooms }

// Dispatch applies a to room roomID on behalf of from. Refusals are sent to
// from as a rejected event and returned.
func (rt *Router) Dispatch(ctx context.Context, roomID string, from Subscriber, a Action) error {
	if err := ValidRoomID(roomID); err != nil {
		return rt.Reject(from, reject(a.Name(), ErrValidation, "%v", err))
	}

	if _, ok := a.(JoinGame); ok {
		err := rt.rooms.GetOrCreate(roomID).Do(ctx, from, a)
		if errors.Is(err, ErrRoomClosed) {
			// The room was reaped between lookup and delivery.
			err = rt.rooms.GetOrCreate(roomID).Do(ctx, from, a)
		}
		return err
	}

	room, ok := rt.rooms.Get(roomID)
	if !ok {
		return rt.Reject(from, reject(a.Name(), ErrNotFound, "room %q does not exist", roomID))
	}

	err := room.Do(ctx, from, a)
	if errors.Is(err, ErrRoomClosed) {
		return rt.Reject(from, reject(a.Name(), ErrRoomClosed, "room %q has closed", roomID))
	}
	return err
}

// Reject sends err to sub as a rejected event and returns it.
func (rt *Router) Reject(sub Subscriber, err *ActionError) error {
	if sub != nil {
		_ = sub.Deliver(NewRejected(err.Action, err))
	}
	return err
}

// authorize checks the caller's role for a. Joining is open to anyone.
func authorize(s *Session, caller CallerID, a Action) error {
	switch a.(type) {
	case JoinGame:
		return nil

	case SubmitGuess:
		role, ok := s.Role(caller)
		if !ok {
			return reject(a.Name(), ErrUnauthorized, "join the room before guessing")
		}
		if role != RolePlayer {
			return reject(a.Name(), ErrUnauthorized, "the game master cannot guess")
		}
		return nil

	default:
		if caller == "" || s.GM() != caller {
			return reject(a.Name(), ErrUnauthorized, "only the game master can %s", a.Name())
		}
		return nil
	}
}

// apply runs one action against s. It must only be called from the
// goroutine that owns s.
func apply(ctx context.Context, s *Session, src SetSource, caller CallerID, a Action) ([]Event, error) {
	if err := authorize(s, caller, a); err != nil {
		return nil, err
	}

	switch act := a.(type) {
	case JoinGame:
		return s.Join(caller, act.Username, act.IsGM), nil

	case StartSet:
		set, err := src.Get(ctx, act.SetID)
		switch {
		case errors.Is(err, sets.ErrNotFound):
			return nil, reject(a.Name(), ErrNotFound, "set %d does not exist", act.SetID)
		case err != nil:
			return nil, &ActionError{Action: a.Name(), Err: fmt.Errorf("load set %d: %w", act.SetID, err), Msg: "could not load set"}
		}
		return s.StartSet(set)

	case SubmitGuess:
		return s.SubmitGuess(caller, act.Guess)

	case RevealGuesses:
		return s.RevealGuesses()

	case RevealAnswer:
		return s.RevealAnswer()

	case NextItem:
		return s.NextItem()

	case BackToLobby:
		return s.ReturnToLobby(), nil

	default:
		return nil, reject(a.Name(), ErrValidation, "unsupported action")
	}
}
