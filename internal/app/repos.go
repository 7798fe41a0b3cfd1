package app

import (
	"gorm.io/gorm"

	repos "github.com/yungbote/trendwatch-backend/internal/data/repos/incidents"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type Repos struct {
	Event            repos.EventRepo
	KnowledgeArticle repos.KnowledgeArticleRepo
	ResolutionRecord repos.ResolutionRecordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Event:            repos.NewEventRepo(db, log),
		KnowledgeArticle: repos.NewKnowledgeArticleRepo(db, log),
		ResolutionRecord: repos.NewResolutionRecordRepo(db, log),
	}
}
