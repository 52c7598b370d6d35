/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sets

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps sets in a map. State is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	sets map[int64]Set
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets: make(map[int64]Set),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (Set, error) {
	if err := ctx.Err(); err != nil {
		return Set{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sets[id]
	if !ok {
		return Set{}, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Summary, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, s.Summary())
	}
	slices.SortFunc(out, func(a, b Summary) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) Create(ctx context.Context, d Draft) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createLocked(d)
}

// createLocked numbers new sets one past the highest id in use, starting at 0.
func (m *MemoryStore) createLocked(d Draft) (int64, error) {
	s := Set{
		Name:      strings.TrimSpace(d.Name),
		Pitch:     strings.TrimSpace(d.Pitch),
		Items:     slices.Clone(d.Items),
		CreatedAt: m.now(),
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}

	next := int64(0)
	for id := range m.sets {
		if id >= next {
			next = id + 1
		}
	}
	s.ID = next
	m.sets[s.ID] = s
	return s.ID, nil
}

func (m *MemoryStore) Update(ctx context.Context, id int64, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.updateLocked(id, p)
	return err
}

// updateLocked returns the previous version so callers can roll back.
func (m *MemoryStore) updateLocked(id int64, p Patch) (Set, error) {
	prev, ok := m.sets[id]
	if !ok {
		return Set{}, ErrNotFound
	}

	next := prev.Clone()
	p.apply(&next)
	if err := next.Validate(); err != nil {
		return Set{}, err
	}
	next.UpdatedAt = m.now()
	m.sets[id] = next
	return prev, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sets[id]; !ok {
		return ErrNotFound
	}
	delete(m.sets, id)
	return nil
}

// allLocked returns every set ordered by id. Caller holds the lock.
func (m *MemoryStore) allLocked() []Set {
	out := make([]Set, 0, len(m.sets))
	for _, s := range m.sets {
		out = append(out, s.Clone())
	}
	slices.SortFunc(out, func(a, b Set) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *MemoryStore) ImportSets(ctx context.Context, src []Set) ([]ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, results, err := m.importLocked(src)
	return results, err
}

// importLocked applies src and returns the map it replaced. On error the
// map is already restored.
func (m *MemoryStore) importLocked(src []Set) (map[int64]Set, []ImportResult, error) {
	prev := maps.Clone(m.sets)

	existing := make([]Summary, 0, len(m.sets))
	for _, s := range m.sets {
		existing = append(existing, s.Summary())
	}
	byName := firstByName(existing)

	results := make([]ImportResult, 0, len(src))
	for _, s := range src {
		if id, ok := byName[s.Name]; ok {
			pitch := s.Pitch
			if _, err := m.updateLocked(id, Patch{Pitch: &pitch, Items: s.Items}); err != nil {
				m.sets = prev
				return nil, nil, fmt.Errorf("update %q: %w", s.Name, err)
			}
			results = append(results, ImportResult{ID: id, Name: s.Name, Items: len(s.Items), Updated: true})
			continue
		}

		id, err := m.createLocked(Draft{Name: s.Name, Pitch: s.Pitch, Items: s.Items})
		if err != nil {
			m.sets = prev
			return nil, nil, fmt.Errorf("create %q: %w", s.Name, err)
		}
		if !s.CreatedAt.IsZero() {
			created := m.sets[id]
			created.CreatedAt = s.CreatedAt
			m.sets[id] = created
		}
		byName[s.Name] = id
		results = append(results, ImportResult{ID: id, Name: s.Name, Items: len(s.Items)})
	}
	return prev, results, nil
}
