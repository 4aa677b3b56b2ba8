package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/apierr"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

// OnboardingInput carries the diagnostic results gathered before planning
// starts. PriorGradePercent of zero means "no school record available";
// SelectedTimelineWeeks of zero means "use the recommendation".
type OnboardingInput struct {
	DiagnosticScores      []float64 `json:"diagnostic_scores"`
	PriorGradePercent     float64   `json:"prior_grade_percent"`
	WeeklyStudyHours      float64   `json:"weekly_study_hours"`
	SelectedTimelineWeeks int       `json:"selected_timeline_weeks"`
}

// ProfileService owns the learner profile lifecycle. The selected timeline
// is fixed at onboarding and never rewritten afterwards; pacing adjustments
// only move CurrentForecastWeeks.
type ProfileService interface {
	Onboard(ctx context.Context, learnerID uuid.UUID, input OnboardingInput) (*types.LearnerProfile, error)
	Get(ctx context.Context, learnerID uuid.UUID) (*types.LearnerProfile, error)
	Snapshot(dbc dbctx.Context, learnerID uuid.UUID, reason string) error
	RecordEngagement(ctx context.Context, learnerID uuid.UUID, minutes int) error
}

type profileService struct {
	db       *gorm.DB
	log      *logger.Logger
	policy   ProgressionPolicy
	profiles repos.LearnerProfileRepo
	learners repos.LearnerRepo
}

func NewProfileService(
	db *gorm.DB,
	baseLog *logger.Logger,
	policy ProgressionPolicy,
	profiles repos.LearnerProfileRepo,
	learners repos.LearnerRepo,
) ProfileService {
	return &profileService{
		db:       db,
		log:      baseLog.With("service", "ProfileService"),
		policy:   policy,
		profiles: profiles,
		learners: learners,
	}
}

func (s *profileService) Onboard(ctx context.Context, learnerID uuid.UUID, input OnboardingInput) (*types.LearnerProfile, error) {
	dbc := dbctx.Context{Ctx: ctx}

	learner, err := s.learners.GetByID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if learner == nil {
		return nil, apierr.NotFound(fmt.Errorf("learner %s not found", learnerID))
	}
	existing, err := s.profiles.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if existing != nil {
		return nil, apierr.InvalidRequest(fmt.Errorf("learner %s already onboarded", learnerID))
	}
	for _, score := range input.DiagnosticScores {
		if score < 0 || score > 1 {
			return nil, apierr.InvalidScore(fmt.Errorf("diagnostic score out of range [0,1]: %v", score))
		}
	}
	if input.PriorGradePercent < 0 || input.PriorGradePercent > 100 {
		return nil, apierr.InvalidScore(fmt.Errorf("prior grade out of range [0,100]: %v", input.PriorGradePercent))
	}

	// Ability blends the diagnostic with the school record when one exists.
	ability := averageScore(input.DiagnosticScores)
	if input.PriorGradePercent > 0 {
		ability = 0.5*ability + 0.5*input.PriorGradePercent/100
	}
	depth := cognitiveDepth(input.DiagnosticScores)
	recommended := s.recommendTimeline(ability, input.WeeklyStudyHours)

	selected := input.SelectedTimelineWeeks
	if selected == 0 {
		selected = recommended
	}
	if selected < s.policy.TimelineMinWeeks || selected > s.policy.TimelineMaxWeeks {
		return nil, apierr.InvalidRequest(fmt.Errorf(
			"selected timeline %d outside [%d, %d] weeks",
			selected, s.policy.TimelineMinWeeks, s.policy.TimelineMaxWeeks,
		))
	}

	profile := &types.LearnerProfile{
		ID:                       uuid.New(),
		LearnerID:                learnerID,
		Ability:                  ability,
		CognitiveDepth:           depth,
		SelectedTimelineWeeks:    selected,
		RecommendedTimelineWeeks: recommended,
		CurrentForecastWeeks:     selected,
		TimelineDeltaWeeks:       0,
	}
	if err := s.profiles.Upsert(dbc, profile); err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if err := s.Snapshot(dbc, learnerID, "onboarding"); err != nil {
		return nil, err
	}

	s.log.Info("Onboarded learner",
		"learner_id", learnerID.String(),
		"ability", ability,
		"recommended_weeks", recommended,
		"selected_weeks", selected,
	)
	return profile, nil
}

func (s *profileService) Get(ctx context.Context, learnerID uuid.UUID) (*types.LearnerProfile, error) {
	profile, err := s.profiles.GetByLearnerID(dbctx.Context{Ctx: ctx}, learnerID)
	if err != nil {
		return nil, apierr.PersistenceFailure(err)
	}
	if profile == nil {
		return nil, apierr.NotFound(fmt.Errorf("no profile for learner %s", learnerID))
	}
	return profile, nil
}

// Snapshot appends the profile's current state to the history table.
func (s *profileService) Snapshot(dbc dbctx.Context, learnerID uuid.UUID, reason string) error {
	profile, err := s.profiles.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	if profile == nil {
		return nil
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	if err := s.profiles.CreateSnapshot(dbc, &types.LearnerProfileSnapshot{
		ID:        uuid.New(),
		LearnerID: learnerID,
		Reason:    reason,
		Payload:   datatypes.JSON(payload),
	}); err != nil {
		return apierr.PersistenceFailure(err)
	}
	return nil
}

func (s *profileService) RecordEngagement(ctx context.Context, learnerID uuid.UUID, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	profile, err := s.profiles.GetByLearnerID(dbc, learnerID)
	if err != nil {
		return apierr.PersistenceFailure(err)
	}
	if profile == nil {
		return apierr.NotFound(fmt.Errorf("no profile for learner %s", learnerID))
	}
	return s.profiles.UpdateFields(dbc, learnerID, map[string]interface{}{
		"engagement_minutes": gorm.Expr("engagement_minutes + ?", minutes),
	})
}

// recommendTimeline maps ability onto the timeline band: a perfect
// diagnostic lands at the minimum, a blank one at the maximum. Low weekly
// availability stretches the recommendation, high availability tightens it.
func (s *profileService) recommendTimeline(ability, weeklyHours float64) int {
	span := float64(s.policy.TimelineMaxWeeks - s.policy.TimelineMinWeeks)
	weeks := float64(s.policy.TimelineMaxWeeks) - ability*span
	switch {
	case weeklyHours > 0 && weeklyHours < 5:
		weeks += 2
	case weeklyHours > 10:
		weeks -= 2
	}
	return s.policy.ClampWeeks(int(math.Round(weeks)))
}

func averageScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores))
}

// cognitiveDepth blends the mean with consistency: steady scores indicate a
// learner who can take deeper material at the same average.
func cognitiveDepth(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.5
	}
	mean := averageScore(scores)
	var variance float64
	for _, v := range scores {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(scores))
	depth := mean*0.8 + (1-math.Sqrt(variance))*0.2
	if depth < 0 {
		return 0
	}
	if depth > 1 {
		return 1
	}
	return depth
}
