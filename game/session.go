/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package game runs price-guessing rooms and scores their guesses.
package game

import (
	"cmp"
	"slices"

	"github.com/Seednode/pricebox/sets"
)

// Role is what a participant may do in a room.
type Role int

const (
	RolePlayer Role = iota
	RoleGM
)

func (r Role) String() string {
	if r == RoleGM {
		return "gm"
	}
	return "player"
}

// Participant is a seated caller and the name they joined with.
type Participant struct {
	Name string
	Role Role
}

// Session is the state of a single room. It is not safe for concurrent use;
// a Room serializes every call.
type Session struct {
	id string

	participants map[CallerID]Participant
	order        []CallerID // first-join order, never shrinks
	gm           CallerID

	set       *sets.Set
	itemIndex int
	guesses   map[CallerID]float64
	scores    map[CallerID]int
	phase     Phase
}

// NewSession returns an empty room waiting in the lobby.
func NewSession(id string) *Session {
	return &Session{
		id:           id,
		participants: make(map[CallerID]Participant),
		guesses:      make(map[CallerID]float64),
		scores:       make(map[CallerID]int),
		phase:        PhaseLobby,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) GM() CallerID { return s.gm }

func (s *Session) Role(c CallerID) (Role, bool) {
	p, ok := s.participants[c]
	return p.Role, ok
}

func (s *Session) Score(c CallerID) int { return s.scores[c] }

func (s *Session) ItemIndex() int { return s.itemIndex }

// players returns the callers holding the player role, in join order.
func (s *Session) players() []CallerID {
	out := make([]CallerID, 0, len(s.order))
	for _, c := range s.order {
		if p, ok := s.participants[c]; ok && p.Role == RolePlayer {
			out = append(out, c)
		}
	}
	return out
}

// PlayerCount is the number of participants holding the player role.
func (s *Session) PlayerCount() int {
	n := 0
	for _, p := range s.participants {
		if p.Role == RolePlayer {
			n++
		}
	}
	return n
}

func (s *Session) name(c CallerID) string {
	if p, ok := s.participants[c]; ok {
		return p.Name
	}
	return defaultUsername
}

// Snapshot describes the whole room for a client that just joined.
func (s *Session) Snapshot() GameState {
	st := GameState{
		header:    header{EventGameState},
		Room:      s.id,
		Phase:     s.phase,
		Players:   make([]PlayerView, 0, len(s.participants)),
		ItemIndex: s.itemIndex,
		Guesses:   len(s.guesses),
	}
	if s.gm != "" {
		st.GM = s.name(s.gm)
	}
	for _, c := range s.players() {
		_, guessed := s.guesses[c]
		st.Players = append(st.Players, PlayerView{
			Username:   s.name(c),
			Score:      s.scores[c],
			HasGuessed: guessed,
		})
	}
	if s.set == nil {
		return st
	}

	sum := s.set.Summary()
	st.Set = &sum
	st.Total = len(s.set.Items)

	switch s.phase {
	case PhasePlaying, PhaseGuessesRevealed, PhaseAnswerRevealed:
		item := s.set.Items[s.itemIndex]
		view := viewItem(item)
		st.Item = &view

		if s.phase == PhasePlaying {
			break
		}
		st.Revealed = s.guessList()

		if s.phase == PhaseAnswerRevealed {
			price := item.Price
			st.Answer = &price
			st.Results = s.results(item, false)
		}
	case PhaseScoreboard:
		st.Scoreboard = s.Ranking()
	}
	return st
}

// Join seats the caller. A GM join takes over the GM slot; a player join
// keeps any score the caller already earned in this room.
func (s *Session) Join(c CallerID, name string, asGM bool) []Event {
	if !slices.Contains(s.order, c) {
		s.order = append(s.order, c)
	}

	var changed *GMChanged

	if asGM {
		prev := s.gm
		if prev != "" && prev != c {
			changed = &GMChanged{header: header{EventGMChanged}, Previous: s.name(prev), Current: name}
			delete(s.participants, prev)
		}
		s.gm = c
		s.participants[c] = Participant{Name: name, Role: RoleGM}
		delete(s.guesses, c)
	} else {
		if s.gm == c {
			s.gm = ""
			changed = &GMChanged{header: header{EventGMChanged}, Previous: s.name(c)}
		}
		s.participants[c] = Participant{Name: name, Role: RolePlayer}
		if _, ok := s.scores[c]; !ok {
			s.scores[c] = 0
		}
	}

	events := []Event{
		s.Snapshot(),
		PlayerJoined{header: header{EventPlayerJoined}, Username: name, IsGM: asGM},
	}
	if changed != nil {
		events = append(events, *changed)
	}
	return events
}

// StartSet loads set as the active set and begins its first item. Every
// score in the room goes back to zero.
func (s *Session) StartSet(set sets.Set) ([]Event, error) {
	if len(set.Items) == 0 {
		return nil, reject(ActionStartSet, ErrValidation, "set %d has no items", set.ID)
	}

	s.set = &set
	s.itemIndex = 0
	s.phase = PhasePlaying
	clear(s.guesses)
	for c := range s.scores {
		s.scores[c] = 0
	}

	return []Event{s.showItem()}, nil
}

func (s *Session) showItem() ShowItem {
	return ShowItem{
		header: header{EventShowItem},
		Item:   viewItem(s.set.Items[s.itemIndex]),
		Index:  s.itemIndex,
		Total:  len(s.set.Items),
		Phase:  s.phase,
	}
}

// SubmitGuess records or replaces the caller's guess for the current item.
func (s *Session) SubmitGuess(c CallerID, guess float64) ([]Event, error) {
	if s.phase != PhasePlaying {
		return nil, reject(ActionSubmitGuess, ErrInvalidState, "guesses are closed while %s", s.phase)
	}

	s.guesses[c] = guess

	return []Event{GuessSubmitted{
		header:       header{EventGuessSubmitted},
		Username:     s.name(c),
		TotalGuesses: len(s.guesses),
		TotalPlayers: s.PlayerCount(),
	}}, nil
}

// RevealGuesses shows every guess for the current item. It does not modify
// the guesses, so calling it again yields the same list.
func (s *Session) RevealGuesses() ([]Event, error) {
	if s.phase != PhasePlaying && s.phase != PhaseGuessesRevealed {
		return nil, reject(ActionRevealGuesses, ErrInvalidState, "nothing to reveal while %s", s.phase)
	}

	s.phase = PhaseGuessesRevealed

	return []Event{ShowGuesses{header: header{EventShowGuesses}, Guesses: s.guessList()}}, nil
}

func (s *Session) guessList() []GuessEntry {
	out := make([]GuessEntry, 0, len(s.guesses))
	for _, c := range s.order {
		if g, ok := s.guesses[c]; ok {
			out = append(out, GuessEntry{Username: s.name(c), Guess: g})
		}
	}
	return out
}

// RevealAnswer scores every guess against the current item and adds the
// round score to each guesser's total. Players who did not guess are left
// out of the results.
func (s *Session) RevealAnswer() ([]Event, error) {
	if s.set == nil {
		return nil, reject(ActionRevealAnswer, ErrInvalidState, "no set is active")
	}
	if s.phase != PhasePlaying && s.phase != PhaseGuessesRevealed {
		return nil, reject(ActionRevealAnswer, ErrInvalidState, "answer cannot be revealed while %s", s.phase)
	}

	item := s.set.Items[s.itemIndex]
	results := s.results(item, true)

	s.phase = PhaseAnswerRevealed

	return []Event{ShowAnswer{
		header:      header{EventShowAnswer},
		ActualPrice: item.Price,
		Difficulty:  item.Difficulty,
		Results:     results,
	}}, nil
}

// results scores each guess against item in join order. Only RevealAnswer
// passes credit; a snapshot recomputes the same rows without touching totals.
func (s *Session) results(item sets.Item, credit bool) []Result {
	out := make([]Result, 0, len(s.guesses))
	for _, c := range s.order {
		g, ok := s.guesses[c]
		if !ok {
			continue
		}
		pts := Score(g, item.Price, item.Difficulty)
		if credit {
			s.scores[c] += pts
		}
		out = append(out, Result{
			Username:   s.name(c),
			Guess:      g,
			Score:      pts,
			TotalScore: s.scores[c],
		})
	}
	return out
}

// NextItem advances to the next item, or to the scoreboard after the last one.
func (s *Session) NextItem() ([]Event, error) {
	if s.set == nil {
		return nil, reject(ActionNextItem, ErrInvalidState, "no set is active")
	}
	switch s.phase {
	case PhasePlaying, PhaseGuessesRevealed, PhaseAnswerRevealed:
	default:
		return nil, reject(ActionNextItem, ErrInvalidState, "cannot advance while %s", s.phase)
	}

	s.itemIndex++
	if s.itemIndex < len(s.set.Items) {
		s.phase = PhasePlaying
		clear(s.guesses)
		return []Event{s.showItem()}, nil
	}

	s.phase = PhaseScoreboard
	return []Event{ShowScoreboard{header: header{EventShowScoreboard}, Scoreboard: s.Ranking()}}, nil
}

// Ranking lists players by total score, highest first. Ties keep join order.
func (s *Session) Ranking() []Standing {
	players := s.players()
	out := make([]Standing, 0, len(players))
	for _, c := range players {
		out = append(out, Standing{Username: s.name(c), Score: s.scores[c]})
	}
	slices.SortStableFunc(out, func(a, b Standing) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// ReturnToLobby drops the active set. Scores survive until the next set starts.
func (s *Session) ReturnToLobby() []Event {
	s.phase = PhaseLobby
	s.set = nil
	s.itemIndex = 0
	clear(s.guesses)

	return []Event{ReturnedToLobby{header: header{EventReturnToLobby}}}
}
