package incidents

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"github.com/yungbote/trendwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

// ResolutionRecordRepo is append-only; records are never updated after Create.
type ResolutionRecordRepo interface {
	Create(dbc dbctx.Context, rec *types.ResolutionRecord) (*types.ResolutionRecord, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ResolutionRecord, error)
	// ListRecent returns newest first. An empty category lists every category.
	ListRecent(dbc dbctx.Context, category string, since time.Time, limit int) ([]*types.ResolutionRecord, error)
}

type resolutionRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResolutionRecordRepo(db *gorm.DB, baseLog *logger.Logger) ResolutionRecordRepo {
	return &resolutionRecordRepo{
		db:  db,
		log: baseLog.With("repo", "ResolutionRecordRepo"),
	}
}

func (r *resolutionRecordRepo) Create(dbc dbctx.Context, rec *types.ResolutionRecord) (*types.ResolutionRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *resolutionRecordRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ResolutionRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.ResolutionRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

func (r *resolutionRecordRepo) ListRecent(dbc dbctx.Context, category string, since time.Time, limit int) ([]*types.ResolutionRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	var out []*types.ResolutionRecord
	q := transaction.WithContext(dbc.Ctx)
	if c := strings.ToLower(strings.TrimSpace(category)); c != "" {
		q = q.Where("LOWER(category) = ?", c)
	}
	if !since.IsZero() {
		q = q.Where("generated_at >= ?", since.UTC())
	}
	if err := q.Order("generated_at DESC, created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
