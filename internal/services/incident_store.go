package services

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"

	"github.com/yungbote/trendwatch-backend/internal/baseline"
	repos "github.com/yungbote/trendwatch-backend/internal/data/repos/incidents"
	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"github.com/yungbote/trendwatch-backend/internal/knowledge"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/resolution"
	"github.com/yungbote/trendwatch-backend/internal/trend"
)

// IncidentStore adapts the incident repos to the pipeline's store contracts.
// Every call runs under its own timeout; connectivity failures come back as
// pipeline.DependencyError.
type IncidentStore struct {
	log      *logger.Logger
	events   repos.EventRepo
	articles repos.KnowledgeArticleRepo
	records  repos.ResolutionRecordRepo
	timeout  time.Duration
}

var (
	_ pipeline.EventStore      = (*IncidentStore)(nil)
	_ pipeline.ResolutionStore = (*IncidentStore)(nil)
	_ knowledge.Store          = (*IncidentStore)(nil)
)

func NewIncidentStore(log *logger.Logger, events repos.EventRepo, articles repos.KnowledgeArticleRepo, records repos.ResolutionRecordRepo, timeout time.Duration) *IncidentStore {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &IncidentStore{
		log:      log.With("service", "IncidentStore"),
		events:   events,
		articles: articles,
		records:  records,
		timeout:  timeout,
	}
}

func (s *IncidentStore) OpenEvents(ctx context.Context, since, until time.Time) ([]trend.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.events.ListOpenBetween(dbctx.New(ctx), since, until)
	if err != nil {
		return nil, classify(pipeline.DependencyEventStore, err)
	}
	out := make([]trend.Event, 0, len(rows))
	for _, e := range rows {
		out = append(out, trend.Event{
			RefID:       e.RefID,
			Category:    e.Category,
			ProductArea: e.ProductArea,
			Content:     e.Content,
			Severity:    e.Severity,
			Status:      e.Status,
			OccurredAt:  e.OccurredAt.UTC(),
		})
	}
	return out, nil
}

func (s *IncidentStore) History(ctx context.Context, category string, since, until time.Time) ([]baseline.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.events.ListByCategorySince(dbctx.New(ctx), category, since, until)
	if err != nil {
		return nil, classify(pipeline.DependencyEventStore, err)
	}
	out := make([]baseline.Sample, 0, len(rows))
	for _, e := range rows {
		out = append(out, baseline.Sample{
			OccurredAt:        e.OccurredAt.UTC(),
			Closed:            e.Status == types.EventStatusClosed,
			ResolutionMinutes: e.ResolutionMinutes,
		})
	}
	return out, nil
}

func (s *IncidentStore) ActiveArticles(ctx context.Context, category, subArea string) ([]knowledge.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.articles.ListActive(dbctx.New(ctx), category, subArea)
	if err != nil {
		return nil, classify(pipeline.DependencyKnowledgeStore, err)
	}
	out := make([]knowledge.Article, 0, len(rows))
	for _, a := range rows {
		out = append(out, knowledge.Article{
			ID:          a.ID.String(),
			Title:       a.Title,
			Content:     a.Content,
			Category:    a.Category,
			SubArea:     a.SubArea,
			SuccessRate: a.SuccessRate,
			Active:      a.Status == types.ArticleStatusActive,
			LastUpdated: a.LastUpdated.UTC(),
		})
	}
	return out, nil
}

func (s *IncidentStore) Append(ctx context.Context, rec pipeline.Record) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := RecordFromCycle(rec)
	if err != nil {
		return "", err
	}
	created, err := s.records.Create(dbctx.New(ctx), row)
	if err != nil {
		return "", classify(pipeline.DependencyResolutionStore, err)
	}
	return created.ID.String(), nil
}

func (s *IncidentStore) Recent(ctx context.Context, category string, since time.Time, limit int) ([]resolution.Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.records.ListRecent(dbctx.New(ctx), category, since, limit)
	if err != nil {
		return nil, classify(pipeline.DependencyResolutionStore, err)
	}
	out := make([]resolution.Resolution, 0, len(rows))
	for _, r := range rows {
		res, err := ResolutionFromRecord(r)
		if err != nil {
			s.log.Warn("skipping unreadable resolution record", "record_id", r.ID, "error", err)
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// RecordFromCycle maps a completed cycle onto its persisted row.
func RecordFromCycle(rec pipeline.Record) (*types.ResolutionRecord, error) {
	cycleID, err := uuid.Parse(rec.CycleID)
	if err != nil {
		cycleID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.CycleID))
	}
	articles := rec.Resolution.ArticlesUsed
	if articles == nil {
		articles = []string{}
	}
	articlesJSON, err := json.Marshal(articles)
	if err != nil {
		return nil, fmt.Errorf("encode articles_used: %w", err)
	}
	reasons := rec.Decision.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return nil, fmt.Errorf("encode escalation_reasons: %w", err)
	}
	res := rec.Resolution
	return &types.ResolutionRecord{
		CycleID:               cycleID,
		Category:              res.Category,
		ProductArea:           res.SubArea,
		AffectedCount:         rec.Signal.Count,
		MaxSeverity:           rec.Signal.MaxSeverity,
		Summary:               rec.Summary,
		RootCause:             res.RootCause,
		Steps:                 res.Steps,
		Verification:          res.Verification,
		Prevention:            res.Prevention,
		CommunicationTemplate: res.CommunicationTemplate,
		ArticlesUsed:          datatypes.JSON(articlesJSON),
		EscalationScore:       rec.Decision.Score,
		EscalationLevel:       string(rec.Decision.Level),
		EscalationTeam:        rec.Decision.Team,
		EscalationSLASeconds:  int64(rec.Decision.SLA / time.Second),
		EscalationReasons:     datatypes.JSON(reasonsJSON),
		Escalated:             rec.Decision.ShouldEscalate,
		ConsistencyChanges:    res.ConsistencyChanges,
		GeneratedAt:           res.GeneratedAt.UTC().Truncate(resolution.TimestampPrecision),
	}, nil
}

func ResolutionFromRecord(r *types.ResolutionRecord) (resolution.Resolution, error) {
	articles := []string{}
	if len(r.ArticlesUsed) > 0 {
		if err := json.Unmarshal(r.ArticlesUsed, &articles); err != nil {
			return resolution.Resolution{}, fmt.Errorf("decode articles_used: %w", err)
		}
	}
	return resolution.Resolution{
		Category:              r.Category,
		SubArea:               r.ProductArea,
		RootCause:             r.RootCause,
		Steps:                 r.Steps,
		Verification:          r.Verification,
		Prevention:            r.Prevention,
		CommunicationTemplate: r.CommunicationTemplate,
		ArticlesUsed:          articles,
		GeneratedAt:           r.GeneratedAt.UTC(),
		ConsistencyChanges:    r.ConsistencyChanges,
	}, nil
}

func classify(dependency string, err error) error {
	if IsUnavailableError(err) {
		return pipeline.Unavailable(dependency, err)
	}
	return err
}

// IsUnavailableError reports connectivity failures: timeouts, broken
// connections and Postgres connection-exception classes.
func IsUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 08: connection exception, 57P: operator intervention (shutdown, cannot connect now)
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
