/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/pricebox/sets"
)

const maxSetBody = 1 << 20

type setResponse struct {
	Success bool  `json:"success"`
	SetID   int64 `json:"set_id"`
	Updated bool  `json:"updated,omitempty"`
}

// uploadRequest creates a set, or replaces one when set_id is present.
type uploadRequest struct {
	sets.Draft
	SetID json.RawMessage `json:"set_id"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sets.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func setIDParam(ps httprouter.Params) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid set id %q", sets.ErrInvalid, ps.ByName("id"))
	}
	return id, nil
}

// optionalSetID reads set_id as a number or numeric string. Absent, null and
// empty values mean no id.
func optionalSetID(raw json.RawMessage) (int64, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return 0, false, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(strings.TrimSpace(s))
	}

	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id < 0 {
		return 0, false, fmt.Errorf("%w: invalid set_id %s", sets.ErrInvalid, raw)
	}
	return id, true, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSetBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", sets.ErrInvalid, err)
	}
	return nil
}

func serveListSets(cfg *Config, repo sets.Repository, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		list, err := repo.List(r.Context())
		if err != nil {
			writeJSONError(cfg, w, r, statusFor(err), err)

			return
		}

		written, err := writeJSON(cfg, w, http.StatusOK, list)
		if err != nil {
			errs <- err

			return
		}

		logServe(r, "Set list", written, startTime)
	}
}

func serveGetSet(cfg *Config, repo sets.Repository, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		id, err := setIDParam(ps)
		if err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		set, err := repo.Get(r.Context(), id)
		if err != nil {
			writeJSONError(cfg, w, r, statusFor(err), err)

			return
		}

		written, err := writeJSON(cfg, w, http.StatusOK, set)
		if err != nil {
			errs <- err

			return
		}

		logServe(r, fmt.Sprintf("Set %d", id), written, startTime)
	}
}

func serveUploadSet(cfg *Config, repo sets.Repository, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req uploadRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		id, update, err := optionalSetID(req.SetID)
		if err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		status := http.StatusCreated
		if update {
			items := req.Items
			if items == nil {
				items = []sets.Item{}
			}
			err = repo.Update(r.Context(), id, sets.Patch{Name: &req.Name, Pitch: &req.Pitch, Items: items})
			status = http.StatusOK
		} else {
			id, err = repo.Create(r.Context(), req.Draft)
		}
		if err != nil {
			writeJSONError(cfg, w, r, statusFor(err), err)

			return
		}

		log.Info().Str("module", "sets").Int64("set", id).Bool("updated", update).Str("client", realIP(r)).Msg("saved set")

		if _, err := writeJSON(cfg, w, status, setResponse{Success: true, SetID: id, Updated: update}); err != nil {
			errs <- err
		}
	}
}

func serveUpdateSet(cfg *Config, repo sets.Repository, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := setIDParam(ps)
		if err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		var patch sets.Patch
		if err := decodeBody(w, r, &patch); err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		if err := repo.Update(r.Context(), id, patch); err != nil {
			writeJSONError(cfg, w, r, statusFor(err), err)

			return
		}

		log.Info().Str("module", "sets").Int64("set", id).Str("client", realIP(r)).Msg("updated set")

		if _, err := writeJSON(cfg, w, http.StatusOK, setResponse{Success: true, SetID: id, Updated: true}); err != nil {
			errs <- err
		}
	}
}

func serveDeleteSet(cfg *Config, repo sets.Repository, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, err := setIDParam(ps)
		if err != nil {
			writeJSONError(cfg, w, r, http.StatusBadRequest, err)

			return
		}

		if err := repo.Delete(r.Context(), id); err != nil {
			writeJSONError(cfg, w, r, statusFor(err), err)

			return
		}

		log.Info().Str("module", "sets").Int64("set", id).Str("client", realIP(r)).Msg("deleted set")

		if _, err := writeJSON(cfg, w, http.StatusOK, setResponse{Success: true, SetID: id}); err != nil {
			errs <- err
		}
	}
}

func registerSets(cfg *Config, repo sets.Repository, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/sets", serveListSets(cfg, repo, errs))
	mux.POST(cfg.prefix+"/sets", serveUploadSet(cfg, repo, errs))
	mux.GET(cfg.prefix+"/sets/:id", serveGetSet(cfg, repo, errs))
	mux.PUT(cfg.prefix+"/sets/:id", serveUpdateSet(cfg, repo, errs))
	mux.DELETE(cfg.prefix+"/sets/:id", serveDeleteSet(cfg, repo, errs))
}
