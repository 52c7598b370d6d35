/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"cmp"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	roomIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	roomIDLength  = 8
	maxRoomIDLen  = 64
)

// ValidRoomID reports whether id can name a room.
func ValidRoomID(id string) error {
	switch {
	case id == "":
		return errors.New("room id is empty")
	case !utf8.ValidString(id):
		return errors.New("room id is not valid utf-8")
	case len(id) > maxRoomIDLen:
		return fmt.Errorf("room id longer than %d bytes", maxRoomIDLen)
	}
	return nil
}

// Registry maps room ids to rooms. It lives for the whole process; rooms
// are added on first join and removed only by Reap or Close.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	sets  SetSource

	log zerolog.Logger
}

func NewRegistry(src SetSource) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		sets:  src,
		log:   log.With().Str("module", "game.registry").Logger(),
	}
}

// GetOrCreate returns the room for id, creating it if needed. Concurrent
// callers for the same id always get the same room.
func (r *Registry) GetOrCreate(id string) *Room {
	r.mu.RLock()
	room, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return room
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[id]; ok {
		return room
	}

	room = newRoom(id, r.sets)
	r.rooms[id] = room

	r.log.Info().Str("room", id).Msg("created room")

	return room
}

func (r *Registry) Get(id string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	return room, ok
}

// List returns a summary of every room, ordered by id.
func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Info())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b RoomInfo) int { return cmp.Compare(a.ID, b.ID) })

	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// NewRoomID generates a random 8-character id not used by any current room.
func (r *Registry) NewRoomID() string {
	for {
		buf := make([]byte, roomIDLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomIDLength)
		for i := range out {
			out[i] = roomIDLetters[int(buf[i])%len(roomIDLetters)]
		}
		id := string(out)

		if _, exists := r.Get(id); !exists {
			return id
		}
	}
}

// Reap closes and removes rooms with no activity for longer than idle.
func (r *Registry) Reap(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	var stale []*Room

	r.mu.Lock()
	for id, room := range r.rooms {
		if room.Info().LastActive.Before(cutoff) {
			delete(r.rooms, id)
			stale = append(stale, room)
		}
	}
	r.mu.Unlock()

	for _, room := range stale {
		room.Close()
		r.log.Info().Str("room", room.ID()).Msg("reaped idle room")
	}

	return len(stale)
}

// ReapLoop calls Reap every idle/2 until ctx is done. A non-positive idle
// disables reaping.
func (r *Registry) ReapLoop(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Reap(idle)
		case <-ctx.Done():
			return
		}
	}
}

// Close shuts down every room.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}
