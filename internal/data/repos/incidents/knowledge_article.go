package incidents

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/trendwatch-backend/internal/domain"
	"github.com/yungbote/trendwatch-backend/internal/platform/dbctx"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

type KnowledgeArticleRepo interface {
	Create(dbc dbctx.Context, articles []*types.KnowledgeArticle) ([]*types.KnowledgeArticle, error)
	// ListActive filters by category, and by sub-area too when subArea is non-empty.
	ListActive(dbc dbctx.Context, category, subArea string) ([]*types.KnowledgeArticle, error)
}

type knowledgeArticleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeArticleRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeArticleRepo {
	return &knowledgeArticleRepo{
		db:  db,
		log: baseLog.With("repo", "KnowledgeArticleRepo"),
	}
}

func (r *knowledgeArticleRepo) Create(dbc dbctx.Context, articles []*types.KnowledgeArticle) ([]*types.KnowledgeArticle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(articles) == 0 {
		return []*types.KnowledgeArticle{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *knowledgeArticleRepo) ListActive(dbc dbctx.Context, category, subArea string) ([]*types.KnowledgeArticle, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KnowledgeArticle
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("LOWER(category) = ? AND status = ?", category, types.ArticleStatusActive)
	if sa := strings.ToLower(strings.TrimSpace(subArea)); sa != "" {
		q = q.Where("LOWER(sub_area) = ?", sa)
	}
	if err := q.Order("last_updated DESC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
