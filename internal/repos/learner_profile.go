package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidyasetu/vidyasetu-backend/internal/platform/dbctx"
	"github.com/vidyasetu/vidyasetu-backend/internal/platform/logger"
	"github.com/vidyasetu/vidyasetu-backend/internal/types"
)

type LearnerProfileRepo interface {
	Upsert(dbc dbctx.Context, row *types.LearnerProfile) error
	GetByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerProfile, error)
	UpdateFields(dbc dbctx.Context, learnerID uuid.UUID, fields map[string]interface{}) error
	CreateSnapshot(dbc dbctx.Context, row *types.LearnerProfileSnapshot) error
}

type learnerProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerProfileRepo(db *gorm.DB, baseLog *logger.Logger) LearnerProfileRepo {
	return &learnerProfileRepo{db: db, log: baseLog.With("repo", "LearnerProfileRepo")}
}

func (r *learnerProfileRepo) dbx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *learnerProfileRepo) GetByLearnerID(dbc dbctx.Context, learnerID uuid.UUID) (*types.LearnerProfile, error) {
	if learnerID == uuid.Nil {
		return nil, nil
	}
	var out types.LearnerProfile
	err := r.dbx(dbc).WithContext(dbc.Ctx).
		Where("learner_id = ?", learnerID).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *learnerProfileRepo) Upsert(dbc dbctx.Context, row *types.LearnerProfile) error {
	if row == nil || row.LearnerID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}

	t := r.dbx(dbc).WithContext(dbc.Ctx)

	existing, err := r.GetByLearnerID(dbc, row.LearnerID)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != uuid.Nil {
		row.ID = existing.ID
		return t.Save(row).Error
	}
	return t.Create(row).Error
}

func (r *learnerProfileRepo) UpdateFields(dbc dbctx.Context, learnerID uuid.UUID, fields map[string]interface{}) error {
	if learnerID == uuid.Nil || len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.dbx(dbc).WithContext(dbc.Ctx).
		Model(&types.LearnerProfile{}).
		Where("learner_id = ?", learnerID).
		Updates(fields).Error
}

func (r *learnerProfileRepo) CreateSnapshot(dbc dbctx.Context, row *types.LearnerProfileSnapshot) error {
	if row == nil || row.LearnerID == uuid.Nil {
		return nil
	}
	return r.dbx(dbc).WithContext(dbc.Ctx).Create(row).Error
}
