package incidents

import (
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"github.com/yungbote/trendwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type EventRepo interface {
	Create(dbc dbctx.Context, events []*types.Event) ([]*types.Event, error)
	// ListOpenBetween returns open events with since < occurred_at <= until, oldest first.
	ListOpenBetween(dbc dbctx.Context, since, until time.Time) ([]*types.Event, error)
	// ListByCategorySince returns events of any status for one category, oldest first.
	ListByCategorySince(dbc dbctx.Context, category string, since, until time.Time) ([]*types.Event, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{
		db:  db,
		log: baseLog.With("repo", "EventRepo"),
	}
}

func (r *eventRepo) Create(dbc dbctx.Context, events []*types.Event) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.Event{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepo) ListOpenBetween(dbc dbctx.Context, since, until time.Time) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Event
	if err := transaction.WithContext(dbc.Ctx).
		Where("status = ? AND occurred_at > ? AND occurred_at <= ?", types.EventStatusOpen, since.UTC(), until.UTC()).
		Order("occurred_at ASC, ref_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *eventRepo) ListByCategorySince(dbc dbctx.Context, category string, since, until time.Time) ([]*types.Event, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Event
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Select("id", "ref_id", "category", "status", "occurred_at", "resolution_minutes").
		Where("LOWER(category) = ? AND occurred_at > ? AND occurred_at <= ?", category, since.UTC(), until.UTC()).
		Order("occurred_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
