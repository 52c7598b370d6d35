package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/pricebox/sets"
)

type recorder struct {
	id CallerID

	mu     sync.Mutex
	events []Event
	closed bool
	full   bool
}

func newRecorder(id CallerID) *recorder { return &recorder{id: id} }

func (r *recorder) Caller() CallerID { return r.id }

func (r *recorder) Deliver(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.full {
		return errors.New("buffer full")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType())
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

type fixture struct {
	store  *sets.MemoryStore
	rooms  *Registry
	router *Router
	setID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := sets.NewMemoryStore()
	id, err := store.Create(context.Background(), sets.Draft{
		Name: "Kitchen",
		Items: []sets.Item{
			{Name: "Kettle", Price: 100, Difficulty: sets.Medium},
			{Name: "Toaster", Price: 40, Difficulty: sets.Easy},
		},
	})
	require.NoError(t, err)

	rooms := NewRegistry(store)
	t.Cleanup(rooms.Close)

	return &fixture{store: store, rooms: rooms, router: NewRouter(rooms), setID: id}
}

func (f *fixture) do(t *testing.T, sub Subscriber, a Action) error {
	t.Helper()
	return f.router.Dispatch(context.Background(), "room1", sub, a)
}

func TestUnknownSetRejectedToGMOnly(t *testing.T) {
	f := newFixture(t)
	host, p1, p2 := newRecorder(gm), newRecorder(alice), newRecorder(bob)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))
	require.NoError(t, f.do(t, p2, JoinGame{Username: "Bob"}))
	p1.reset()
	p2.reset()

	err := f.do(t, host, StartSet{SetID: 999})
	require.ErrorIs(t, err, ErrNotFound)

	rejected, ok := host.last().(Rejected)
	require.True(t, ok)
	assert.Equal(t, "not_found", rejected.Kind)
	assert.Equal(t, ActionStartSet, rejected.Action)

	assert.Empty(t, p1.types())
	assert.Empty(t, p2.types())

	room, ok := f.rooms.Get("room1")
	require.True(t, ok)
	assert.Equal(t, PhaseLobby, room.Info().Phase)
}

func TestStartSetBroadcastsFirstItem(t *testing.T) {
	f := newFixture(t)
	host, p1 := newRecorder(gm), newRecorder(alice)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))

	require.NoError(t, f.do(t, host, StartSet{SetID: f.setID}))

	for _, r := range []*recorder{host, p1} {
		item, ok := r.last().(ShowItem)
		require.True(t, ok)
		assert.Equal(t, "Kettle", item.Item.Name)
		assert.Equal(t, 2, item.Total)
	}
}

func TestNonGMActionsAreRejected(t *testing.T) {
	f := newFixture(t)
	host, p1 := newRecorder(gm), newRecorder(alice)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))
	host.reset()

	for _, a := range []Action{StartSet{SetID: f.setID}, RevealGuesses{}, RevealAnswer{}, NextItem{}, BackToLobby{}} {
		err := f.do(t, p1, a)
		assert.ErrorIs(t, err, ErrUnauthorized, a.Name())

		rejected, ok := p1.last().(Rejected)
		require.True(t, ok)
		assert.Equal(t, "unauthorized", rejected.Kind)
	}

	assert.Empty(t, host.types())
}

func TestGMCannotGuess(t *testing.T) {
	f := newFixture(t)
	host := newRecorder(gm)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, host, StartSet{SetID: f.setID}))

	err := f.do(t, host, SubmitGuess{Guess: 10})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestActionOnMissingRoom(t *testing.T) {
	f := newFixture(t)
	p1 := newRecorder(alice)

	err := f.do(t, p1, SubmitGuess{Guess: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	rejected, ok := p1.last().(Rejected)
	require.True(t, ok)
	assert.Equal(t, "not_found", rejected.Kind)
	assert.Equal(t, 0, f.rooms.Len())
}

func TestInvalidRoomID(t *testing.T) {
	f := newFixture(t)
	p1 := newRecorder(alice)

	err := f.router.Dispatch(context.Background(), "", p1, JoinGame{Username: "Alice"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.rooms.Len())
}

func TestConcurrentGetOrCreateYieldsOneRoom(t *testing.T) {
	f := newFixture(t)

	const n = 64
	got := make([]*Room, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Go(func() {
			got[i] = f.rooms.GetOrCreate("shared")
		})
	}
	wg.Wait()

	for _, r := range got {
		assert.Same(t, got[0], r)
	}
	assert.Equal(t, 1, f.rooms.Len())
}

func TestConcurrentJoinsShareOneSession(t *testing.T) {
	f := newFixture(t)

	const n = 32
	subs := make([]*recorder, n)
	for i := range subs {
		subs[i] = newRecorder(CallerID(rune('a' + i)))
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Go(func() {
			assert.NoError(t, f.do(t, sub, JoinGame{Username: string(sub.id)}))
		})
	}
	wg.Wait()

	room, ok := f.rooms.Get("room1")
	require.True(t, ok)
	assert.Equal(t, n, room.Info().Players)
	assert.Equal(t, n, room.Info().Subscribers)
}

func TestConcurrentRevealAnswerCreditsOnce(t *testing.T) {
	f := newFixture(t)
	host, p1 := newRecorder(gm), newRecorder(alice)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))
	require.NoError(t, f.do(t, host, StartSet{SetID: f.setID}))
	require.NoError(t, f.do(t, p1, SubmitGuess{Guess: 100}))

	const n = 16
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range n {
		wg.Go(func() {
			if f.do(t, host, RevealAnswer{}) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	assert.Equal(t, 1, ok)

	room, _ := f.rooms.Get("room1")
	assert.Equal(t, 1500, room.session.Score(alice))

	answers := 0
	for _, typ := range p1.types() {
		if typ == EventShowAnswer {
			answers++
		}
	}
	assert.Equal(t, 1, answers)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	f := newFixture(t)
	host, p1 := newRecorder(gm), newRecorder(alice)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))

	p1.mu.Lock()
	p1.full = true
	p1.mu.Unlock()

	require.NoError(t, f.do(t, host, StartSet{SetID: f.setID}))

	assert.True(t, p1.isClosed())

	room, _ := f.rooms.Get("room1")
	assert.Equal(t, 1, room.Info().Subscribers)
	assert.Equal(t, 1, room.Info().Players, "a dropped connection keeps its seat")
}

func TestLeaveStopsDelivery(t *testing.T) {
	f := newFixture(t)
	host, p1 := newRecorder(gm), newRecorder(alice)

	require.NoError(t, f.do(t, host, JoinGame{Username: "Host", IsGM: true}))
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))

	room, _ := f.rooms.Get("room1")
	room.Leave(p1)
	p1.reset()

	require.NoError(t, f.do(t, host, StartSet{SetID: f.setID}))
	assert.Empty(t, p1.types())
	assert.False(t, p1.isClosed())
}

func TestReapClosesIdleRooms(t *testing.T) {
	f := newFixture(t)
	p1 := newRecorder(alice)

	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))
	room, _ := f.rooms.Get("room1")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, f.rooms.Reap(time.Hour))
	assert.Equal(t, 1, f.rooms.Reap(5*time.Millisecond))

	assert.Equal(t, 0, f.rooms.Len())
	assert.True(t, p1.isClosed())
	assert.ErrorIs(t, room.Do(context.Background(), p1, NextItem{}), ErrRoomClosed)

	// joining again starts a fresh room
	require.NoError(t, f.do(t, p1, JoinGame{Username: "Alice"}))
	fresh, ok := f.rooms.Get("room1")
	require.True(t, ok)
	assert.NotSame(t, room, fresh)
}

func TestListRoomsSorted(t *testing.T) {
	f := newFixture(t)

	f.rooms.GetOrCreate("b")
	f.rooms.GetOrCreate("a")

	list := f.rooms.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, PhaseLobby, list[0].Phase)
}

func TestNewRoomID(t *testing.T) {
	f := newFixture(t)

	id := f.rooms.NewRoomID()
	assert.Len(t, id, 8)
	assert.NoError(t, ValidRoomID(id))
	assert.NotEqual(t, id, f.rooms.NewRoomID())
}
