/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/pricebox/game"
)

const (
	callerCookieName = "pricebox_id"

	sendBuffer = 32
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	qrSize     = 320
)

var (
	ErrBackpressure = errors.New("backpressure")
	errClientClosed = errors.New("connection closed")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection to a room.
type Client struct {
	conn   *websocket.Conn
	send   chan game.Event
	caller game.CallerID

	mu     sync.RWMutex
	closed bool
}

func newClient(conn *websocket.Conn, caller game.CallerID) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan game.Event, sendBuffer),
		caller: caller,
	}
}

func (c *Client) Caller() game.CallerID { return c.caller }

// Deliver queues ev without blocking. A full queue means the client cannot
// keep up and the room should drop it.
func (c *Client) Deliver(ev game.Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return errClientClosed
	}

	select {
	case c.send <- ev:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) readPump(ctx context.Context, cfg *Config, router *game.Router, roomID string) {
	defer func() {
		if room, ok := router.Rooms().Get(roomID); ok {
			room.Leave(c)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(cfg.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	logger := log.With().Str("module", "ws").Str("room", roomID).Str("caller", string(c.caller)).Logger()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("read failed")
			}
			return
		}

		action, err := game.DecodeAction(data)
		if err != nil {
			var ae *game.ActionError
			if errors.As(err, &ae) {
				_ = router.Reject(c, ae)
			}
			continue
		}

		if err := router.Dispatch(ctx, roomID, c, action); err != nil {
			logger.Debug().Str("action", action.Name()).Err(err).Msg("action refused")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// getOrSetCallerID returns the caller id stored in the request cookie,
// issuing a new one when it is missing or malformed.
func getOrSetCallerID(w http.ResponseWriter, r *http.Request) game.CallerID {
	if c, err := r.Cookie(callerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return game.CallerID(id.String())
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     callerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return game.CallerID(id)
}

func serveWS(cfg *Config, router *game.Router) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("room")
		if err := game.ValidRoomID(roomID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		caller := getOrSetCallerID(w, r)

		header := http.Header{}
		if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
			header["Set-Cookie"] = cookies
		}

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			log.Debug().Str("module", "ws").Str("client", realIP(r)).Err(err).Msg("upgrade failed")
			return
		}

		log.Debug().Str("module", "ws").Str("room", roomID).Str("caller", string(caller)).Str("client", realIP(r)).Msg("connected")

		client := newClient(conn, caller)

		go client.writePump()
		client.readPump(r.Context(), cfg, router, roomID)
	}
}

func serveRooms(cfg *Config, rooms *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		written, err := writeJSON(cfg, w, http.StatusOK, rooms.List())
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "Room list", written, startTime)
	}
}

func serveRoomInfo(cfg *Config, rooms *game.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		room, ok := rooms.Get(ps.ByName("room"))
		if !ok {
			writeJSONError(cfg, w, r, http.StatusNotFound, game.ErrNotFound)

			return
		}

		_ = getOrSetCallerID(w, r)

		written, err := writeJSON(cfg, w, http.StatusOK, room.Info())
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "Room "+room.ID(), written, startTime)
	}
}

// redirectNewRoom opens a room under a fresh random id and redirects to it.
func redirectNewRoom(cfg *Config, rooms *game.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := rooms.NewRoomID()
		rooms.GetOrCreate(id)

		log.Info().Str("module", "web").Str("room", id).Str("client", realIP(r)).Msg("opened new room")

		http.Redirect(w, r, cfg.prefix+"/rooms/"+id, http.StatusTemporaryRedirect)
	}
}

// qrHandler serves a PNG QR code pointing at the room.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := game.ValidRoomID(ps.ByName("room")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func registerRooms(cfg *Config, router *game.Router, mux *httprouter.Router, errs chan<- error) {
	rooms := router.Rooms()

	mux.GET(cfg.prefix+"/new", redirectNewRoom(cfg, rooms))
	mux.GET(cfg.prefix+"/rooms", serveRooms(cfg, rooms, errs))
	mux.GET(cfg.prefix+"/rooms/:room", serveRoomInfo(cfg, rooms, errs))
	mux.GET(cfg.prefix+"/rooms/:room/ws", serveWS(cfg, router))
	mux.GET(cfg.prefix+"/rooms/:room/qr", qrHandler)
}
