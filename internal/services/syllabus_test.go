package services

import (
	"context"
	"testing"

	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

func TestSeedDefaultSubject_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	before := len(env.orderedUnits(t))

	if err := env.syllabus.SeedDefaultSubject(context.Background()); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	after := len(env.orderedUnits(t))
	if before != after {
		t.Fatalf("re-seed duplicated rows: %d -> %d", before, after)
	}
}

func TestOrderedUnits_ChapterPrecedesItsSections(t *testing.T) {
	env := newTestEnv(t)
	units := env.orderedUnits(t)

	if units[0].UnitKey != "chapter-1" || units[0].Kind != types.UnitKindChapter {
		t.Fatalf("expected chapter-1 first, got %q (%q)", units[0].UnitKey, units[0].Kind)
	}
	if units[1].UnitKey != "1.1" || units[1].Kind != types.UnitKindSection {
		t.Fatalf("expected section 1.1 second, got %q", units[1].UnitKey)
	}
	if units[1].ParentUnitID == nil || *units[1].ParentUnitID != units[0].ID {
		t.Fatalf("expected 1.1 parented to chapter-1")
	}

	prevChapter, prevSort := 0, -1
	for _, u := range units {
		if u.ChapterNumber < prevChapter {
			t.Fatalf("chapter order regressed at %q", u.UnitKey)
		}
		if u.ChapterNumber > prevChapter {
			if u.SortOrder != 0 {
				t.Fatalf("chapter %d does not open with its chapter row", u.ChapterNumber)
			}
			prevChapter, prevSort = u.ChapterNumber, 0
			continue
		}
		if u.SortOrder != prevSort+1 {
			t.Fatalf("sort order gap at %q: %d after %d", u.UnitKey, u.SortOrder, prevSort)
		}
		prevSort = u.SortOrder
	}
}

func TestNeighbors_WalkTheOrderedSequence(t *testing.T) {
	env := newTestEnv(t)
	units := env.orderedUnits(t)

	next, err := env.syllabus.SuccessorOf(env.dbc(), DefaultSubject, units[0].ID)
	if err != nil {
		t.Fatalf("successor: %v", err)
	}
	if next == nil || next.ID != units[1].ID {
		t.Fatalf("expected %q after %q", units[1].UnitKey, units[0].UnitKey)
	}

	prev, err := env.syllabus.PredecessorOf(env.dbc(), DefaultSubject, units[1].ID)
	if err != nil {
		t.Fatalf("predecessor: %v", err)
	}
	if prev == nil || prev.ID != units[0].ID {
		t.Fatalf("expected %q before %q", units[0].UnitKey, units[1].UnitKey)
	}
}

func TestNeighbors_NilAtSequenceBounds(t *testing.T) {
	env := newTestEnv(t)
	units := env.orderedUnits(t)
	last := units[len(units)-1]

	prev, err := env.syllabus.PredecessorOf(env.dbc(), DefaultSubject, units[0].ID)
	if err != nil {
		t.Fatalf("predecessor: %v", err)
	}
	if prev != nil {
		t.Fatalf("expected no predecessor for the first unit, got %q", prev.UnitKey)
	}
	next, err := env.syllabus.SuccessorOf(env.dbc(), DefaultSubject, last.ID)
	if err != nil {
		t.Fatalf("successor: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no successor for the last unit, got %q", next.UnitKey)
	}
}
