package domain

import "github.com/yungbote/trendwatch-backend/internal/domain/incidents"

const (
	EventStatusOpen   = incidents.EventStatusOpen
	EventStatusClosed = incidents.EventStatusClosed

	ArticleStatusActive   = incidents.ArticleStatusActive
	ArticleStatusInactive = incidents.ArticleStatusInactive
)

type (
	Event            = incidents.Event
	KnowledgeArticle = incidents.KnowledgeArticle
	ResolutionRecord = incidents.ResolutionRecord
)
