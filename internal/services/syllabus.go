package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/repos"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

const DefaultSubject = "class-10-maths"

// SyllabusService is the engine's read-only view of the curriculum
// hierarchy. Units are ordered (chapter_number, sort_order); a chapter row
// precedes its section rows.
type SyllabusService interface {
	OrderedUnits(ctx context.Context, subject string) ([]*types.SyllabusUnit, error)
	GetUnit(dbc dbctx.Context, unitID uuid.UUID) (*types.SyllabusUnit, error)
	SuccessorOf(dbc dbctx.Context, subject string, unitID uuid.UUID) (*types.SyllabusUnit, error)
	PredecessorOf(dbc dbctx.Context, subject string, unitID uuid.UUID) (*types.SyllabusUnit, error)
	SeedDefaultSubject(ctx context.Context) error
}

type syllabusService struct {
	db    *gorm.DB
	log   *logger.Logger
	units repos.SyllabusUnitRepo
}

func NewSyllabusService(db *gorm.DB, baseLog *logger.Logger, units repos.SyllabusUnitRepo) SyllabusService {
	return &syllabusService{
		db:    db,
		log:   baseLog.With("service", "SyllabusService"),
		units: units,
	}
}

func (s *syllabusService) OrderedUnits(ctx context.Context, subject string) ([]*types.SyllabusUnit, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	return s.units.ListBySubject(dbctx.Context{Ctx: ctx}, subject)
}

func (s *syllabusService) GetUnit(dbc dbctx.Context, unitID uuid.UUID) (*types.SyllabusUnit, error) {
	return s.units.GetByID(dbc, unitID)
}

func (s *syllabusService) SuccessorOf(dbc dbctx.Context, subject string, unitID uuid.UUID) (*types.SyllabusUnit, error) {
	return s.neighborOf(dbc, subject, unitID, +1)
}

func (s *syllabusService) PredecessorOf(dbc dbctx.Context, subject string, unitID uuid.UUID) (*types.SyllabusUnit, error) {
	return s.neighborOf(dbc, subject, unitID, -1)
}

func (s *syllabusService) neighborOf(dbc dbctx.Context, subject string, unitID uuid.UUID, offset int) (*types.SyllabusUnit, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	ordered, err := s.units.ListBySubject(dbc, subject)
	if err != nil {
		return nil, err
	}
	for i, u := range ordered {
		if u.ID == unitID {
			j := i + offset
			if j < 0 || j >= len(ordered) {
				return nil, nil
			}
			return ordered[j], nil
		}
	}
	return nil, fmt.Errorf("unit not found in subject %q: %s", subject, unitID.String())
}

// SeedDefaultSubject loads the Class 10 maths hierarchy on an empty
// database. Real deployments replace this via the ingestion process; the
// engine only ever reads these rows.
func (s *syllabusService) SeedDefaultSubject(ctx context.Context) error {
	dbc := dbctx.Context{Ctx: ctx}
	count, err := s.units.CountBySubject(dbc, DefaultSubject)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	s.log.Info("Seeding default syllabus", "subject", DefaultSubject, "chapters", len(seedChapters))
	now := time.Now().UTC()
	rows := make([]*types.SyllabusUnit, 0, 80)
	for _, ch := range seedChapters {
		chapterID := uuid.New()
		rows = append(rows, &types.SyllabusUnit{
			ID:            chapterID,
			Subject:       DefaultSubject,
			Kind:          types.UnitKindChapter,
			ChapterNumber: ch.number,
			SortOrder:     0,
			UnitKey:       fmt.Sprintf("chapter-%d", ch.number),
			Title:         ch.title,
			IngestedAt:    now,
		})
		parentID := chapterID
		for i, sec := range ch.sections {
			rows = append(rows, &types.SyllabusUnit{
				ID:            uuid.New(),
				Subject:       DefaultSubject,
				Kind:          types.UnitKindSection,
				ParentUnitID:  &parentID,
				ChapterNumber: ch.number,
				SortOrder:     i + 1,
				UnitKey:       sec.key,
				Title:         sec.title,
				IngestedAt:    now,
			})
		}
	}
	_, err = s.units.CreateBatch(dbc, rows)
	return err
}

type seedSection struct {
	key   string
	title string
}

type seedChapter struct {
	number   int
	title    string
	sections []seedSection
}

var seedChapters = []seedChapter{
	{1, "Real Numbers", []seedSection{
		{"1.1", "Introduction"},
		{"1.2", "The Fundamental Theorem of Arithmetic"},
		{"1.3", "Revisiting Irrational Numbers"},
		{"1.4", "Summary"},
	}},
	{2, "Polynomials", []seedSection{
		{"2.1", "Introduction"},
		{"2.2", "Geometrical Meaning of the Zeroes of a Polynomial"},
		{"2.3", "Relationship between Zeroes and Coefficients of a Polynomial"},
		{"2.4", "Summary"},
	}},
	{3, "Pair of Linear Equations in Two Variables", []seedSection{
		{"3.1", "Introduction"},
		{"3.2", "Graphical Method of Solution of a Pair of Linear Equations"},
		{"3.3", "Algebraic Methods of Solving a Pair of Linear Equations"},
		{"3.4", "Summary"},
	}},
	{4, "Quadratic Equations", []seedSection{
		{"4.1", "Introduction"},
		{"4.2", "Quadratic Equations"},
		{"4.3", "Solution of a Quadratic Equation by Factorisation"},
		{"4.4", "Nature of Roots"},
		{"4.5", "Summary"},
	}},
	{5, "Arithmetic Progressions", []seedSection{
		{"5.1", "Introduction"},
		{"5.2", "Arithmetic Progressions"},
		{"5.3", "nth Term of an AP"},
		{"5.4", "Sum of First n Terms of an AP"},
		{"5.5", "Summary"},
	}},
	{6, "Triangles", []seedSection{
		{"6.1", "Introduction"},
		{"6.2", "Similar Figures"},
		{"6.3", "Similarity of Triangles"},
		{"6.4", "Criteria for Similarity of Triangles"},
		{"6.5", "Summary"},
	}},
	{7, "Coordinate Geometry", []seedSection{
		{"7.1", "Introduction"},
		{"7.2", "Distance Formula"},
		{"7.3", "Section Formula"},
		{"7.4", "Summary"},
	}},
	{8, "Introduction to Trigonometry", []seedSection{
		{"8.1", "Introduction"},
		{"8.2", "Trigonometric Ratios"},
		{"8.3", "Trigonometric Ratios of Some Specific Angles"},
		{"8.4", "Trigonometric Identities"},
		{"8.5", "Summary"},
	}},
	{9, "Some Applications of Trigonometry", []seedSection{
		{"9.1", "Heights and Distances"},
		{"9.2", "Summary"},
	}},
	{10, "Circles", []seedSection{
		{"10.1", "Introduction"},
		{"10.2", "Tangent to a Circle"},
		{"10.3", "Number of Tangents from a Point on a Circle"},
		{"10.4", "Summary"},
	}},
	{11, "Areas Related to Circles", []seedSection{
		{"11.1", "Areas of Sector and Segment of a Circle"},
		{"11.2", "Summary"},
	}},
	{12, "Surface Areas and Volumes", []seedSection{
		{"12.1", "Introduction"},
		{"12.2", "Surface Area of a Combination of Solids"},
		{"12.3", "Volume of a Combination of Solids"},
		{"12.4", "Summary"},
	}},
	{13, "Statistics", []seedSection{
		{"13.1", "Introduction"},
		{"13.2", "Mean of Grouped Data"},
		{"13.3", "Mode of Grouped Data"},
		{"13.4", "Median of Grouped Data"},
		{"13.5", "Summary"},
	}},
	{14, "Probability", []seedSection{
		{"14.1", "Probability - A Theoretical Approach"},
		{"14.2", "Summary"},
	}},
}
