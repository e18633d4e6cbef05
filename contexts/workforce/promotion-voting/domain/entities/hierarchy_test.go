package entities

import "testing"

func TestPositionHierarchyNextIsSingleStep(t *testing.T) {
	hierarchy := MustPositionHierarchy(DefaultPositions)

	next, ok := hierarchy.Next("Clerk")
	if !ok || next != "Senior Clerk" {
		t.Fatalf("expected Senior Clerk after Clerk, got %q ok=%v", next, ok)
	}
	next, ok = hierarchy.Next("  team lead ")
	if !ok || next != "Assistant Manager" {
		t.Fatalf("expected case-insensitive lookup, got %q ok=%v", next, ok)
	}
	if _, ok := hierarchy.Next("Regional Manager"); ok {
		t.Fatalf("expected terminal position to have no next step")
	}
	if _, ok := hierarchy.Next("Janitor"); ok {
		t.Fatalf("expected unknown position to have no next step")
	}
}

func TestPositionHierarchyRankAndCanonical(t *testing.T) {
	hierarchy := MustPositionHierarchy([]string{"Crew", "Shift Lead", "Manager"})

	low, _ := hierarchy.Rank("crew")
	high, _ := hierarchy.Rank("MANAGER")
	if low >= high {
		t.Fatalf("expected Crew to rank below Manager, got %d and %d", low, high)
	}
	canonical, ok := hierarchy.Canonical("shift lead")
	if !ok || canonical != "Shift Lead" {
		t.Fatalf("expected canonical Shift Lead, got %q", canonical)
	}
	if len(hierarchy.Positions()) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(hierarchy.Positions()))
	}
}

func TestNewPositionHierarchyRejectsBadLadders(t *testing.T) {
	cases := map[string][]string{
		"empty":     nil,
		"blank":     {"Clerk", " "},
		"duplicate": {"Clerk", "clerk"},
	}
	for name, positions := range cases {
		if _, err := NewPositionHierarchy(positions); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
