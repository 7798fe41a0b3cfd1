package testutil

import (
	"context"
	"testing"
	"time"

	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"gorm.io/gorm"
)

func SeedEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, category, status string, occurredAt time.Time) *types.Event {
	tb.Helper()
	e := &types.Event{
		Category:   category,
		Content:    category + " issue",
		Severity:   2,
		Status:     status,
		OccurredAt: occurredAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	return e
}

func SeedArticle(tb testing.TB, ctx context.Context, tx *gorm.DB, category, subArea, status string, updated time.Time) *types.KnowledgeArticle {
	tb.Helper()
	a := &types.KnowledgeArticle{
		Title:       category + " guide",
		Content:     "restart the " + category + " service",
		Category:    category,
		SubArea:     subArea,
		SuccessRate: 90,
		Status:      status,
		LastUpdated: updated.UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed article: %v", err)
	}
	return a
}
