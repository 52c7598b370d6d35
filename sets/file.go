/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// FileStore is a MemoryStore that rewrites a JSON array file after every
// change. Files written by earlier releases load unchanged.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFile loads path if it exists. A missing file starts an empty store.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("data file path is required")
	}

	store := &FileStore{MemoryStore: NewMemoryStore(), path: filepath.Clean(path)}

	loaded, err := ReadFile(store.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	}
	for _, s := range loaded {
		store.sets[s.ID] = s
	}

	log.Info().Str("module", "sets").Str("path", store.path).Int("sets", len(loaded)).Msg("opened set file")

	return store, nil
}

// fileSet mirrors Set with string timestamps, since older files were written
// with naive ISO-8601 times that time.Time refuses to decode.
type fileSet struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Pitch     string `json:"pitch_line"`
	Items     []Item `json:"items"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(v string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ReadFile decodes a JSON array of sets.
func ReadFile(path string) ([]Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []fileSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	out := make([]Set, 0, len(raw))
	for _, r := range raw {
		out = append(out, Set{
			ID:        r.ID,
			Name:      r.Name,
			Pitch:     r.Pitch,
			Items:     r.Items,
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
		})
	}
	return out, nil
}

func (f *FileStore) Create(ctx context.Context, d Draft) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := f.createLocked(d)
	if err != nil {
		return 0, err
	}
	if err := f.saveLocked(); err != nil {
		delete(f.sets, id)
		return 0, err
	}
	return id, nil
}

func (f *FileStore) Update(ctx context.Context, id int64, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, err := f.updateLocked(id, p)
	if err != nil {
		return err
	}
	if err := f.saveLocked(); err != nil {
		f.sets[id] = prev
		return err
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.sets[id]
	if !ok {
		return ErrNotFound
	}
	delete(f.sets, id)
	if err := f.saveLocked(); err != nil {
		f.sets[id] = prev
		return err
	}
	return nil
}

func (f *FileStore) ImportSets(ctx context.Context, src []Set) ([]ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, results, err := f.importLocked(src)
	if err != nil {
		return nil, err
	}
	if err := f.saveLocked(); err != nil {
		f.sets = prev
		return nil, err
	}
	return results, nil
}

// saveLocked writes to a temp file in the same directory and renames it over
// the old one, so readers never observe a half-written file.
func (f *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(f.allLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode sets: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".sets-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), fs.FileMode(0o644)); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("rename into %s: %w", f.path, err)
	}
	return nil
}
