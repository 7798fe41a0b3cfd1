package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	repos "github.com/yungbote/trendwatch-backend/internal/data/repos/incidents"
	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"github.com/yungbote/trendwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

// ErrInvalidInput wraps every validation failure so handlers can answer 400.
var ErrInvalidInput = errors.New("invalid input")

const MaxEventsPerRequest = 500

type EventInput struct {
	RefID             string    `json:"ref_id"`
	CustomerID        string    `json:"customer_id"`
	Category          string    `json:"category"`
	ProductArea       string    `json:"product_area"`
	Content           string    `json:"content"`
	Severity          int       `json:"severity"`
	Status            string    `json:"status"`
	OccurredAt        time.Time `json:"occurred_at"`
	ResolutionMinutes *float64  `json:"resolution_minutes"`
}

type ArticleInput struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	SubArea     string    `json:"sub_area"`
	SuccessRate float64   `json:"success_rate"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

type IncidentService interface {
	IngestEvents(ctx context.Context, in []EventInput) ([]*types.Event, error)
	IngestArticles(ctx context.Context, in []ArticleInput) ([]*types.KnowledgeArticle, error)
	ListResolutions(ctx context.Context, category string, limit int) ([]*types.ResolutionRecord, error)
	GetResolution(ctx context.Context, id uuid.UUID) (*types.ResolutionRecord, error)
}

type incidentService struct {
	db       *gorm.DB
	log      *logger.Logger
	events   repos.EventRepo
	articles repos.KnowledgeArticleRepo
	records  repos.ResolutionRecordRepo
	now      func() time.Time
}

func NewIncidentService(db *gorm.DB, log *logger.Logger, events repos.EventRepo, articles repos.KnowledgeArticleRepo, records repos.ResolutionRecordRepo) IncidentService {
	if log == nil {
		log = logger.Nop()
	}
	return &incidentService{
		db:       db,
		log:      log.With("service", "IncidentService"),
		events:   events,
		articles: articles,
		records:  records,
		now:      time.Now,
	}
}

func (s *incidentService) IngestEvents(ctx context.Context, in []EventInput) ([]*types.Event, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no events", ErrInvalidInput)
	}
	if len(in) > MaxEventsPerRequest {
		return nil, fmt.Errorf("%w: at most %d events per request", ErrInvalidInput, MaxEventsPerRequest)
	}
	rows := make([]*types.Event, 0, len(in))
	for i, e := range in {
		row, err := s.eventRow(e)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	var created []*types.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.events.Create(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("events ingested", "count", len(created))
	return created, nil
}

func (s *incidentService) eventRow(e EventInput) (*types.Event, error) {
	category := strings.ToLower(strings.TrimSpace(e.Category))
	if category == "" {
		return nil, fmt.Errorf("%w: category required", ErrInvalidInput)
	}
	if e.Severity < 1 || e.Severity > 4 {
		return nil, fmt.Errorf("%w: severity must be between 1 and 4", ErrInvalidInput)
	}
	status := strings.ToLower(strings.TrimSpace(e.Status))
	if status == "" {
		status = types.EventStatusOpen
	}
	if status != types.EventStatusOpen && status != types.EventStatusClosed {
		return nil, fmt.Errorf("%w: status must be open or closed", ErrInvalidInput)
	}
	if e.ResolutionMinutes != nil && *e.ResolutionMinutes < 0 {
		return nil, fmt.Errorf("%w: resolution_minutes must not be negative", ErrInvalidInput)
	}
	occurred := e.OccurredAt.UTC()
	if e.OccurredAt.IsZero() {
		occurred = s.now().UTC()
	}
	return &types.Event{
		RefID:             strings.TrimSpace(e.RefID),
		CustomerID:        strings.TrimSpace(e.CustomerID),
		Category:          category,
		ProductArea:       strings.ToLower(strings.TrimSpace(e.ProductArea)),
		Content:           strings.TrimSpace(e.Content),
		Severity:          e.Severity,
		Status:            status,
		OccurredAt:        occurred,
		ResolutionMinutes: e.ResolutionMinutes,
	}, nil
}

func (s *incidentService) IngestArticles(ctx context.Context, in []ArticleInput) ([]*types.KnowledgeArticle, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no articles", ErrInvalidInput)
	}
	rows := make([]*types.KnowledgeArticle, 0, len(in))
	for i, a := range in {
		category := strings.ToLower(strings.TrimSpace(a.Category))
		if category == "" || strings.TrimSpace(a.Content) == "" {
			return nil, fmt.Errorf("article %d: %w: category and content required", i, ErrInvalidInput)
		}
		if a.SuccessRate < 0 || a.SuccessRate > 100 {
			return nil, fmt.Errorf("article %d: %w: success_rate must be between 0 and 100", i, ErrInvalidInput)
		}
		status := strings.ToLower(strings.TrimSpace(a.Status))
		if status == "" {
			status = types.ArticleStatusActive
		}
		if status != types.ArticleStatusActive && status != types.ArticleStatusInactive {
			return nil, fmt.Errorf("article %d: %w: status must be active or inactive", i, ErrInvalidInput)
		}
		rows = append(rows, &types.KnowledgeArticle{
			Title:       strings.TrimSpace(a.Title),
			Content:     strings.TrimSpace(a.Content),
			Category:    category,
			SubArea:     strings.ToLower(strings.TrimSpace(a.SubArea)),
			SuccessRate: a.SuccessRate,
			Status:      status,
			LastUpdated: a.LastUpdated.UTC(),
		})
	}
	var created []*types.KnowledgeArticle
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.articles.Create(dbctx.Context{Ctx: ctx, Tx: tx}, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *incidentService) ListResolutions(ctx context.Context, category string, limit int) ([]*types.ResolutionRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.records.ListRecent(dbctx.New(ctx), category, time.Time{}, limit)
}

func (s *incidentService) GetResolution(ctx context.Context, id uuid.UUID) (*types.ResolutionRecord, error) {
	return s.records.GetByID(dbctx.New(ctx), id)
}
