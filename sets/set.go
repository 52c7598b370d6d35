/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sets stores the curated item sets a game master can play.
package sets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("set not found")
	ErrInvalid  = errors.New("invalid set")
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Cruel  Difficulty = "cruel"
)

func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard, Cruel:
		return true
	}
	return false
}

// Item is one thing to price. Only Price and Difficulty matter to scoring.
type Item struct {
	Name        string     `json:"name"`
	Price       float64    `json:"price"`
	Difficulty  Difficulty `json:"difficulty"`
	Image       string     `json:"image,omitempty"`
	Description string     `json:"description,omitempty"`
}

type Set struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Pitch     string    `json:"pitch_line"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

type Summary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Pitch     string    `json:"pitch_line"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (s Set) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Name:      s.Name,
		Pitch:     s.Pitch,
		ItemCount: len(s.Items),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Clone returns a copy whose item slice is not shared with s.
func (s Set) Clone() Set {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

// Draft holds the caller-supplied fields of a new set.
type Draft struct {
	Name  string `json:"set_name"`
	Pitch string `json:"pitch_line"`
	Items []Item `json:"items"`
}

// Patch updates the non-nil fields of an existing set.
type Patch struct {
	Name  *string `json:"set_name,omitempty"`
	Pitch *string `json:"pitch_line,omitempty"`
	Items []Item  `json:"items,omitempty"`
}

func (p Patch) apply(s *Set) {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Pitch != nil {
		s.Pitch = strings.TrimSpace(*p.Pitch)
	}
	if p.Items != nil {
		items := make([]Item, len(p.Items))
		copy(items, p.Items)
		s.Items = items
	}
}

// Validate reports the first problem that would stop s from being played.
func (s Set) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalid)
	}
	for i, it := range s.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrInvalid, i)
		}
		if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) || it.Price < 0 {
			return fmt.Errorf("%w: item %d has price %v", ErrInvalid, i, it.Price)
		}
		if !it.Difficulty.Valid() {
			return fmt.Errorf("%w: item %d has unknown difficulty %q", ErrInvalid, i, it.Difficulty)
		}
	}
	return nil
}

// Repository is the persistence contract shared by every store.
type Repository interface {
	Get(ctx context.Context, id int64) (Set, error)
	List(ctx context.Context) ([]Summary, error)
	Create(ctx context.Context, d Draft) (int64, error)
	Update(ctx context.Context, id int64, p Patch) error
	Delete(ctx context.Context, id int64) error
}
