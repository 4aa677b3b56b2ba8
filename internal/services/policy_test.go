package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultProgressionPolicy(t *testing.T) {
	p := DefaultProgressionPolicy()
	if p.CompletionThreshold != 0.60 || p.MaxAttempts != 2 {
		t.Fatalf("unexpected progression defaults: %+v", p)
	}
	if p.MasteredBar != 0.80 || p.WeakZoneBar != 0.60 || p.RevisionThreshold != 0.50 {
		t.Fatalf("unexpected revision defaults: %+v", p)
	}
	if p.TimelineMinWeeks != 14 || p.TimelineMaxWeeks != 28 || p.ForecastStepMax != 2 {
		t.Fatalf("unexpected timeline defaults: %+v", p)
	}
	if p.RunBudget() != 2*time.Second {
		t.Fatalf("unexpected run budget: %v", p.RunBudget())
	}
}

func TestClampWeeks(t *testing.T) {
	p := DefaultProgressionPolicy()
	if got := p.ClampWeeks(10); got != 14 {
		t.Fatalf("expected floor 14, got %d", got)
	}
	if got := p.ClampWeeks(30); got != 28 {
		t.Fatalf("expected ceiling 28, got %d", got)
	}
	if got := p.ClampWeeks(20); got != 20 {
		t.Fatalf("expected passthrough 20, got %d", got)
	}
}

func TestLoadProgressionPolicy_OverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	raw := "completion_threshold: 0.7\nmax_attempts: 3\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p, err := LoadProgressionPolicy(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.CompletionThreshold != 0.7 || p.MaxAttempts != 3 {
		t.Fatalf("expected file values applied, got %+v", p)
	}
	// Keys absent from the file keep their defaults.
	if p.MasteredBar != 0.80 || p.TimelineMinWeeks != 14 {
		t.Fatalf("expected defaults preserved, got %+v", p)
	}
}

func TestLoadProgressionPolicy_MissingFileUsesDefaults(t *testing.T) {
	p, err := LoadProgressionPolicy(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if p != DefaultProgressionPolicy() {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

func TestLoadProgressionPolicy_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("completion_threshold: 1.5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadProgressionPolicy(path, nil)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if p != DefaultProgressionPolicy() {
		t.Fatalf("expected defaults on invalid file, got %+v", p)
	}
}
