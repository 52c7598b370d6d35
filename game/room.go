/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Subscriber receives the events of a room. Deliver must not block; a
// subscriber that cannot keep up returns an error and is dropped.
type Subscriber interface {
	Caller() CallerID
	Deliver(Event) error
	Close()
}

// RoomInfo is a point-in-time summary of a room, safe to read from any
// goroutine.
type RoomInfo struct {
	ID          string    `json:"id"`
	Phase       Phase     `json:"state"`
	Players     int       `json:"players"`
	HasGM       bool      `json:"has_gm"`
	Subscribers int       `json:"connections"`
	CreatedAt   time.Time `json:"created_at"`
	LastActive  time.Time `json:"last_active"`
}

type request struct {
	ctx    context.Context
	from   Subscriber
	action Action
	reply  chan error
}

// Room owns one Session. A single goroutine applies every action, so
// actions for a room take effect one at a time in arrival order.
type Room struct {
	id      string
	session *Session
	sets    SetSource
	subs    map[Subscriber]struct{}

	inbox chan request
	leave chan Subscriber
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu   sync.RWMutex
	info RoomInfo

	log zerolog.Logger
}

func newRoom(id string, src SetSource) *Room {
	now := time.Now()
	r := &Room{
		id:      id,
		session: NewSession(id),
		sets:    src,
		subs:    make(map[Subscriber]struct{}),
		inbox:   make(chan request),
		leave:   make(chan Subscriber),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		info: RoomInfo{
			ID:         id,
			Phase:      PhaseLobby,
			CreatedAt:  now,
			LastActive: now,
		},
		log: log.With().Str("module", "game.room").Str("room", id).Logger(),
	}

	go r.run()

	return r
}

func (r *Room) ID() string { return r.id }

// Do applies a to the room on behalf of from and waits for it to finish.
// Events are delivered before Do returns. A refused action is reported to
// from as a rejected event and returned as an *ActionError.
func (r *Room) Do(ctx context.Context, from Subscriber, a Action) error {
	req := request{ctx: ctx, from: from, action: a, reply: make(chan error, 1)}

	select {
	case r.inbox <- req:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	return <-req.reply
}

// Leave stops delivery to sub. The caller keeps its seat and score.
func (r *Room) Leave(sub Subscriber) {
	select {
	case r.leave <- sub:
	case <-r.done:
	}
}

// Close disconnects every subscriber and stops the room. Later calls to Do
// return ErrRoomClosed.
func (r *Room) Close() {
	r.once.Do(func() { close(r.quit) })
	<-r.done
}

func (r *Room) Info() RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.info
}

func (r *Room) run() {
	defer close(r.done)

	for {
		select {
		case req := <-r.inbox:
			req.reply <- r.handle(req)
			r.touch()

		case sub := <-r.leave:
			delete(r.subs, sub)
			r.touch()

		case <-r.quit:
			for sub := range r.subs {
				sub.Close()
			}
			clear(r.subs)
			r.log.Debug().Msg("closed")
			return
		}
	}
}

func (r *Room) handle(req request) error {
	if _, ok := req.action.(JoinGame); ok && req.from != nil {
		r.subs[req.from] = struct{}{}
	}

	var caller CallerID
	if req.from != nil {
		caller = req.from.Caller()
	}

	events, err := apply(req.ctx, r.session, r.sets, caller, req.action)
	if err != nil {
		r.log.Debug().Str("caller", string(caller)).Str("action", req.action.Name()).Err(err).Msg("rejected")
		if req.from != nil {
			r.send(req.from, NewRejected(req.action.Name(), err))
		}
		return err
	}

	for _, ev := range events {
		r.broadcast(ev)
	}

	r.log.Debug().
		Str("caller", string(caller)).
		Str("action", req.action.Name()).
		Stringer("phase", r.session.Phase()).
		Msg("applied")

	return nil
}

func (r *Room) broadcast(ev Event) {
	for sub := range r.subs {
		r.send(sub, ev)
	}
}

func (r *Room) send(sub Subscriber, ev Event) {
	if err := sub.Deliver(ev); err != nil {
		r.log.Warn().Str("caller", string(sub.Caller())).Err(err).Msg("dropping subscriber")
		delete(r.subs, sub)
		sub.Close()
	}
}

func (r *Room) touch() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.info.Phase = r.session.Phase()
	r.info.Players = r.session.PlayerCount()
	r.info.HasGM = r.session.GM() != ""
	r.info.Subscribers = len(r.subs)
	r.info.LastActive = time.Now()
}
