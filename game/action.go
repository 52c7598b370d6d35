/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CallerID identifies a participant independently of any connection, so a
// reconnecting browser keeps its seat and score.
type CallerID string

// Wire names of inbound actions.
const (
	ActionJoin          = "join_game"
	ActionStartSet      = "start_set"
	ActionSubmitGuess   = "submit_guess"
	ActionRevealGuesses = "reveal_guesses"
	ActionRevealAnswer  = "reveal_answer"
	ActionNextItem      = "next_item"
	ActionBackToLobby   = "back_to_lobby"
)

const (
	defaultUsername = "Anonymous"
	maxUsernameLen  = 36
)

// Action is one of the typed inbound requests below.
type Action interface {
	Name() string
}

type JoinGame struct {
	Username string
	IsGM     bool
}

type StartSet struct {
	SetID int64
}

type SubmitGuess struct {
	Guess float64
}

type RevealGuesses struct{}

type RevealAnswer struct{}

type NextItem struct{}

type BackToLobby struct{}

func (JoinGame) Name() string      { return ActionJoin }
func (StartSet) Name() string      { return ActionStartSet }
func (SubmitGuess) Name() string   { return ActionSubmitGuess }
func (RevealGuesses) Name() string { return ActionRevealGuesses }
func (RevealAnswer) Name() string  { return ActionRevealAnswer }
func (NextItem) Name() string      { return ActionNextItem }
func (BackToLobby) Name() string   { return ActionBackToLobby }

// envelope is the raw shape of every client message.
type envelope struct {
	Type     string          `json:"type"`
	Username string          `json:"username"`
	IsGM     bool            `json:"is_gm"`
	SetID    json.RawMessage `json:"set_id"`
	Guess    json.RawMessage `json:"guess"`
}

// DecodeAction parses one client message. Errors wrap ErrValidation and are
// returned as *ActionError so they can be sent straight back to the client.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, reject("decode", ErrValidation, "malformed message: %v", err)
	}

	switch env.Type {
	case ActionJoin:
		name := strings.TrimSpace(env.Username)
		if name == "" {
			name = defaultUsername
		}
		if utf8.RuneCountInString(name) > maxUsernameLen {
			return nil, reject(env.Type, ErrValidation, "username longer than %d characters", maxUsernameLen)
		}
		return JoinGame{Username: name, IsGM: env.IsGM}, nil

	case ActionStartSet:
		n, err := parseNumber(env.SetID)
		if err != nil {
			return nil, reject(env.Type, ErrValidation, "set_id: %v", err)
		}
		if n != math.Trunc(n) || n < 0 || n > 1<<53 {
			return nil, reject(env.Type, ErrValidation, "set_id must be a non-negative integer")
		}
		return StartSet{SetID: int64(n)}, nil

	case ActionSubmitGuess:
		g, err := parseNumber(env.Guess)
		if err != nil {
			return nil, reject(env.Type, ErrValidation, "guess: %v", err)
		}
		if g < 0 {
			return nil, reject(env.Type, ErrValidation, "guess must not be negative")
		}
		return SubmitGuess{Guess: g}, nil

	case ActionRevealGuesses:
		return RevealGuesses{}, nil
	case ActionRevealAnswer:
		return RevealAnswer{}, nil
	case ActionNextItem:
		return NextItem{}, nil
	case ActionBackToLobby:
		return BackToLobby{}, nil

	case "":
		return nil, reject("decode", ErrValidation, "message has no type")
	default:
		return nil, reject(env.Type, ErrValidation, "unknown message type %q", env.Type)
	}
}

// parseNumber accepts a JSON number or a string holding one, since form
// inputs arrive as strings.
func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("missing")
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errors.New("not a number")
		}
		n, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", s)
		}
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not a finite number")
	}
	return n, nil
}
