package knowledge

import (
	"context"
	"strings"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type Store interface {
	// ActiveArticles lists active articles of the category, narrowed to subArea when it is non-empty.
	ActiveArticles(ctx context.Context, category, subArea string) ([]Article, error)
}

type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, text string) ([]string, error)
}

type Retriever struct {
	log       *logger.Logger
	store     Store
	extractor KeywordExtractor
}

func NewRetriever(log *logger.Logger, store Store, extractor KeywordExtractor) *Retriever {
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{log: log.With("component", "KnowledgeRetriever"), store: store, extractor: extractor}
}

// Retrieve extracts keywords from text and ranks the category's articles.
// Keyword failures degrade to an unscored ranking; store failures are returned.
func (r *Retriever) Retrieve(ctx context.Context, category, subArea, text string) (Result, []string, error) {
	keywords := r.keywords(ctx, text)

	candidates, err := r.candidates(ctx, category, subArea)
	if err != nil {
		return Result{}, keywords, err
	}
	return Rank(category, keywords, candidates), keywords, nil
}

func (r *Retriever) keywords(ctx context.Context, text string) []string {
	if r.extractor == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	kws, err := r.extractor.ExtractKeywords(ctx, text)
	if err != nil {
		r.log.Warn("keyword extraction failed, ranking unscored", "error", err)
		return nil
	}
	return kws
}

func (r *Retriever) candidates(ctx context.Context, category, subArea string) ([]Article, error) {
	if strings.TrimSpace(subArea) != "" {
		arts, err := r.store.ActiveArticles(ctx, category, subArea)
		if err != nil {
			return nil, err
		}
		if len(arts) > 0 {
			return arts, nil
		}
		r.log.Debug("no articles for sub-area, widening to category", "category", category, "sub_area", subArea)
	}
	return r.store.ActiveArticles(ctx, category, "")
}
