package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Action
	}{
		{"join", `{"type":"join_game","username":" Alice ","is_gm":false}`, JoinGame{Username: "Alice"}},
		{"join gm", `{"type":"join_game","username":"Host","is_gm":true}`, JoinGame{Username: "Host", IsGM: true}},
		{"join anonymous", `{"type":"join_game"}`, JoinGame{Username: "Anonymous"}},
		{"start set number", `{"type":"start_set","set_id":3}`, StartSet{SetID: 3}},
		{"start set string", `{"type":"start_set","set_id":"12"}`, StartSet{SetID: 12}},
		{"guess number", `{"type":"submit_guess","guess":19.99}`, SubmitGuess{Guess: 19.99}},
		{"guess string", `{"type":"submit_guess","guess":" 42.5 "}`, SubmitGuess{Guess: 42.5}},
		{"guess zero", `{"type":"submit_guess","guess":0}`, SubmitGuess{Guess: 0}},
		{"reveal guesses", `{"type":"reveal_guesses"}`, RevealGuesses{}},
		{"reveal answer", `{"type":"reveal_answer"}`, RevealAnswer{}},
		{"next item", `{"type":"next_item"}`, NextItem{}},
		{"back to lobby", `{"type":"back_to_lobby"}`, BackToLobby{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeActionRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"no type", `{"username":"x"}`},
		{"unknown type", `{"type":"kick"}`},
		{"long username", `{"type":"join_game","username":"` + strings.Repeat("x", maxUsernameLen+1) + `"}`},
		{"missing set id", `{"type":"start_set"}`},
		{"fractional set id", `{"type":"start_set","set_id":1.5}`},
		{"negative set id", `{"type":"start_set","set_id":-1}`},
		{"missing guess", `{"type":"submit_guess"}`},
		{"word guess", `{"type":"submit_guess","guess":"cheap"}`},
		{"negative guess", `{"type":"submit_guess","guess":-3}`},
		{"infinite guess", `{"type":"submit_guess","guess":"Inf"}`},
		{"object guess", `{"type":"submit_guess","guess":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.in))
			require.ErrorIs(t, err, ErrValidation)

			var ae *ActionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "validation", ae.Kind())
		})
	}
}

func TestNewRejected(t *testing.T) {
	r := NewRejected(ActionNextItem, reject(ActionNextItem, ErrInvalidState, "no set is active"))

	assert.Equal(t, EventRejected, r.EventType())
	assert.Equal(t, "invalid_state", r.Kind)
	assert.Equal(t, "no set is active", r.Error)
}
