package services

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
)

// ProgressionPolicy holds the engine tunables. Values come from an optional
// YAML file; anything unset falls back to the defaults below.
type ProgressionPolicy struct {
	CompletionThreshold float64 `yaml:"completion_threshold"`
	MaxAttempts         int     `yaml:"max_attempts"`
	MasteredBar         float64 `yaml:"mastered_bar"`
	WeakZoneBar         float64 `yaml:"weak_zone_bar"`
	RevisionThreshold   float64 `yaml:"revision_threshold"`
	DecayWindowWeeks    int     `yaml:"decay_window_weeks"`
	DecayRate           float64 `yaml:"decay_rate"`
	PacingSlack         float64 `yaml:"pacing_slack"`
	ForecastStepMax     int     `yaml:"forecast_step_max_weeks"`
	TimelineMinWeeks    int     `yaml:"timeline_min_weeks"`
	TimelineMaxWeeks    int     `yaml:"timeline_max_weeks"`
	RunBudgetSeconds    int     `yaml:"run_budget_seconds"`
}

func DefaultProgressionPolicy() ProgressionPolicy {
	return ProgressionPolicy{
		CompletionThreshold: 0.60,
		MaxAttempts:         2,
		MasteredBar:         0.80,
		WeakZoneBar:         0.60,
		RevisionThreshold:   0.50,
		DecayWindowWeeks:    4,
		DecayRate:           0.15,
		PacingSlack:         0.05,
		ForecastStepMax:     2,
		TimelineMinWeeks:    14,
		TimelineMaxWeeks:    28,
		RunBudgetSeconds:    2,
	}
}

func (p ProgressionPolicy) RunBudget() time.Duration {
	if p.RunBudgetSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(p.RunBudgetSeconds) * time.Second
}

func (p ProgressionPolicy) ClampWeeks(weeks int) int {
	if weeks < p.TimelineMinWeeks {
		return p.TimelineMinWeeks
	}
	if weeks > p.TimelineMaxWeeks {
		return p.TimelineMaxWeeks
	}
	return weeks
}

// LoadProgressionPolicy reads the policy file when present and overlays it on
// the defaults. A missing file is not an error.
func LoadProgressionPolicy(path string, log *logger.Logger) (ProgressionPolicy, error) {
	policy := DefaultProgressionPolicy()
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if log != nil {
				log.Debug("Progression policy file not found, using defaults", "path", path)
			}
			return policy, nil
		}
		return policy, fmt.Errorf("read progression policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return DefaultProgressionPolicy(), fmt.Errorf("parse progression policy: %w", err)
	}
	if err := policy.validate(); err != nil {
		return DefaultProgressionPolicy(), err
	}
	return policy, nil
}

func (p ProgressionPolicy) validate() error {
	if p.CompletionThreshold <= 0 || p.CompletionThreshold > 1 {
		return fmt.Errorf("completion_threshold out of range: %v", p.CompletionThreshold)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1: %d", p.MaxAttempts)
	}
	if p.TimelineMinWeeks < 1 || p.TimelineMaxWeeks < p.TimelineMinWeeks {
		return fmt.Errorf("invalid timeline bounds: [%d, %d]", p.TimelineMinWeeks, p.TimelineMaxWeeks)
	}
	return nil
}
