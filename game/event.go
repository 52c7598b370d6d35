/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"

	"github.com/Seednode/pricebox/sets"
)

// Phase is the step a room is at. Its text form matches the "state" values
// clients already switch on.
type Phase int

const (
	PhaseLobby Phase = iota
	PhasePlaying
	PhaseGuessesRevealed
	PhaseAnswerRevealed
	PhaseScoreboard
)

var phaseNames = [...]string{
	PhaseLobby:           "lobby",
	PhasePlaying:         "playing",
	PhaseGuessesRevealed: "reveal_guesses",
	PhaseAnswerRevealed:  "reveal_answer",
	PhaseScoreboard:      "scoreboard",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Wire names of outbound events.
const (
	EventGameState      = "game_state"
	EventPlayerJoined   = "player_joined"
	EventGMChanged      = "gm_changed"
	EventShowItem       = "show_item"
	EventGuessSubmitted = "guess_submitted"
	EventShowGuesses    = "show_guesses"
	EventShowAnswer     = "show_answer"
	EventShowScoreboard = "show_scoreboard"
	EventReturnToLobby  = "return_to_lobby"
	EventRejected       = "rejected"
)

// Event is a message for clients. Every event serializes with a "type" field.
type Event interface {
	EventType() string
}

type header struct {
	Type string `json:"type"`
}

func (h header) EventType() string { return h.Type }

type PlayerView struct {
	Username   string `json:"username"`
	Score      int    `json:"score"`
	HasGuessed bool   `json:"has_guessed"`
}

// GameState is the full room snapshot sent whenever someone joins. It
// carries whatever the phase has already shown the room, so a client that
// reconnects mid-item can pick up where the others are.
type GameState struct {
	header
	Room       string        `json:"room"`
	Phase      Phase         `json:"state"`
	GM         string        `json:"gm,omitempty"`
	Players    []PlayerView  `json:"players"`
	Set        *sets.Summary `json:"current_set,omitempty"`
	Item       *ItemView     `json:"current_item,omitempty"`
	ItemIndex  int           `json:"current_item_index"`
	Total      int           `json:"total_items,omitempty"`
	Guesses    int           `json:"total_guesses"`
	Revealed   []GuessEntry  `json:"guesses,omitempty"`
	Answer     *float64      `json:"actual_price,omitempty"`
	Results    []Result      `json:"results,omitempty"`
	Scoreboard []Standing    `json:"scoreboard,omitempty"`
}

type PlayerJoined struct {
	header
	Username string `json:"username"`
	IsGM     bool   `json:"is_gm"`
}

// GMChanged announces that the GM slot moved to another caller, or was
// vacated when Current is empty.
type GMChanged struct {
	header
	Previous string `json:"previous,omitempty"`
	Current  string `json:"current,omitempty"`
}

// ItemView is an item as players see it before the answer: no price.
type ItemView struct {
	Name        string          `json:"name"`
	Difficulty  sets.Difficulty `json:"difficulty"`
	Image       string          `json:"image,omitempty"`
	Description string          `json:"description,omitempty"`
}

func viewItem(it sets.Item) ItemView {
	return ItemView{
		Name:        it.Name,
		Difficulty:  it.Difficulty,
		Image:       it.Image,
		Description: it.Description,
	}
}

type ShowItem struct {
	header
	Item  ItemView `json:"item"`
	Index int      `json:"index"`
	Total int      `json:"total"`
	Phase Phase    `json:"state"`
}

// GuessSubmitted reports progress without revealing the guess.
type GuessSubmitted struct {
	header
	Username     string `json:"username"`
	TotalGuesses int    `json:"total_guesses"`
	TotalPlayers int    `json:"total_players"`
}

type GuessEntry struct {
	Username string  `json:"username"`
	Guess    float64 `json:"guess"`
}

type ShowGuesses struct {
	header
	Guesses []GuessEntry `json:"guesses"`
}

type Result struct {
	Username   string  `json:"username"`
	Guess      float64 `json:"guess"`
	Score      int     `json:"score"`
	TotalScore int     `json:"total_score"`
}

type ShowAnswer struct {
	header
	ActualPrice float64         `json:"actual_price"`
	Difficulty  sets.Difficulty `json:"difficulty"`
	Results     []Result        `json:"results"`
}

type Standing struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type ShowScoreboard struct {
	header
	Scoreboard []Standing `json:"scoreboard"`
}

type ReturnedToLobby struct {
	header
}

// Rejected is sent only to the caller whose action was refused.
type Rejected struct {
	header
	Action string `json:"action"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// NewRejected builds the rejection for err. Errors that are not an
// *ActionError are reported as internal.
func NewRejected(action string, err error) Rejected {
	r := Rejected{header: header{EventRejected}, Action: action, Kind: errorKind(err), Error: err.Error()}

	var ae *ActionError
	if errors.As(err, &ae) {
		r.Action = ae.Action
		r.Error = ae.Msg
	}
	return r
}
