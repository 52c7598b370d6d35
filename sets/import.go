/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sets

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
)

type ImportResult struct {
	ID      int64
	Name    string
	Items   int
	Updated bool
}

// Importer applies a batch of sets as one unit: either every set lands or
// the store is left as it was.
type Importer interface {
	ImportSets(ctx context.Context, src []Set) ([]ImportResult, error)
}

// Import copies src into dst. A set whose name already exists in dst
// replaces that set's pitch and items; every other set is created and keeps
// its CreatedAt. Nothing is written unless every set in src is valid.
func Import(ctx context.Context, src []Set, dst Importer) ([]ImportResult, error) {
	clean := make([]Set, 0, len(src))
	for _, s := range src {
		s = s.Clone()
		s.Name = strings.TrimSpace(s.Name)
		s.Pitch = strings.TrimSpace(s.Pitch)
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("import %q: %w", s.Name, err)
		}
		clean = append(clean, s)
	}

	return dst.ImportSets(ctx, clean)
}

// firstByName maps each name to the lowest id holding it.
func firstByName(existing []Summary) map[string]int64 {
	slices.SortFunc(existing, func(a, b Summary) int { return cmp.Compare(a.ID, b.ID) })

	byName := make(map[string]int64, len(existing))
	for _, s := range existing {
		if _, ok := byName[s.Name]; !ok {
			byName[s.Name] = s.ID
		}
	}
	return byName
}
