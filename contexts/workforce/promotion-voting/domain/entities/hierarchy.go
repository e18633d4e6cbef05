package entities

import (
	"fmt"
	"strings"
)

// DefaultPositions is the store ladder used when configuration does not
// override it. Order is lowest to highest.
var DefaultPositions = []string{
	"Clerk",
	"Senior Clerk",
	"Team Lead",
	"Assistant Manager",
	"Store Manager",
	"Regional Manager",
}

// PositionHierarchy is an immutable ranking of positions. Every position but
// the last has exactly one promotion target: the next entry in the ladder.
type PositionHierarchy struct {
	names []string
	ranks map[string]int
}

func NewPositionHierarchy(positions []string) (PositionHierarchy, error) {
	if len(positions) == 0 {
		return PositionHierarchy{}, fmt.Errorf("position hierarchy requires at least one position")
	}
	names := make([]string, 0, len(positions))
	ranks := make(map[string]int, len(positions))
	for idx, raw := range positions {
		name := strings.TrimSpace(raw)
		if name == "" {
			return PositionHierarchy{}, fmt.Errorf("position at index %d is blank", idx)
		}
		key := positionKey(name)
		if _, exists := ranks[key]; exists {
			return PositionHierarchy{}, fmt.Errorf("position %q is listed more than once", name)
		}
		ranks[key] = idx
		names = append(names, name)
	}
	return PositionHierarchy{names: names, ranks: ranks}, nil
}

// MustPositionHierarchy panics on an invalid ladder. Intended for static
// defaults and tests.
func MustPositionHierarchy(positions []string) PositionHierarchy {
	hierarchy, err := NewPositionHierarchy(positions)
	if err != nil {
		panic(err)
	}
	return hierarchy
}

// Next returns the single eligible promotion target for current.
func (h PositionHierarchy) Next(current string) (string, bool) {
	rank, ok := h.Rank(current)
	if !ok || rank+1 >= len(h.names) {
		return "", false
	}
	return h.names[rank+1], true
}

func (h PositionHierarchy) Rank(position string) (int, bool) {
	rank, ok := h.ranks[positionKey(position)]
	return rank, ok
}

// Canonical returns the configured spelling of position.
func (h PositionHierarchy) Canonical(position string) (string, bool) {
	rank, ok := h.Rank(position)
	if !ok {
		return "", false
	}
	return h.names[rank], true
}

func (h PositionHierarchy) Positions() []string {
	return append([]string(nil), h.names...)
}

func positionKey(position string) string {
	return strings.ToLower(strings.Join(strings.Fields(position), " "))
}
