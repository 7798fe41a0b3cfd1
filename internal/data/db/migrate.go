package db

import (
	"fmt"

	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Event{},
		&types.KnowledgeArticle{},
		&types.ResolutionRecord{},
	); err != nil {
		return err
	}
	return EnsureIncidentIndexes(db)
}

// EnsureIncidentIndexes adds the composite indexes behind the window and history reads.
func EnsureIncidentIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"idx_event_status_occurred", `CREATE INDEX IF NOT EXISTS idx_event_status_occurred ON customer_issue_event(status, occurred_at);`},
		{"idx_event_category_occurred", `CREATE INDEX IF NOT EXISTS idx_event_category_occurred ON customer_issue_event(category, occurred_at);`},
		{"idx_article_category_status", `CREATE INDEX IF NOT EXISTS idx_article_category_status ON knowledge_article(category, status);`},
		{"idx_resolution_category_generated", `CREATE INDEX IF NOT EXISTS idx_resolution_category_generated ON resolution_record(category, generated_at);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
