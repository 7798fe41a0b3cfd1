package incidents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	EventStatusOpen   = "open"
	EventStatusClosed = "closed"

	ArticleStatusActive   = "active"
	ArticleStatusInactive = "inactive"
)

// Event is one customer-issue record. Rows are append-only.
type Event struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RefID             string    `gorm:"column:ref_id;index" json:"ref_id"`
	CustomerID        string    `gorm:"column:customer_id;index" json:"customer_id,omitempty"`
	Category          string    `gorm:"column:category;not null;index" json:"category"`
	ProductArea       string    `gorm:"column:product_area;index" json:"product_area,omitempty"`
	Content           string    `gorm:"column:content;not null" json:"content"`
	Severity          int       `gorm:"column:severity;not null" json:"severity"`
	Status            string    `gorm:"column:status;not null;index" json:"status"`
	OccurredAt        time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	ResolutionMinutes *float64  `gorm:"column:resolution_minutes" json:"resolution_minutes,omitempty"`
	CreatedAt         time.Time `gorm:"not null;index" json:"created_at"`
}

func (Event) TableName() string { return "customer_issue_event" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RefID == "" {
		e.RefID = e.ID.String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}

type KnowledgeArticle struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Content     string    `gorm:"column:content;not null" json:"content"`
	Category    string    `gorm:"column:category;not null;index" json:"category"`
	SubArea     string    `gorm:"column:sub_area;index" json:"sub_area,omitempty"`
	SuccessRate float64   `gorm:"column:success_rate;not null" json:"success_rate"`
	Status      string    `gorm:"column:status;not null;index" json:"status"`
	LastUpdated time.Time `gorm:"column:last_updated;not null;index" json:"last_updated"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (KnowledgeArticle) TableName() string { return "knowledge_article" }

func (a *KnowledgeArticle) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.LastUpdated.IsZero() {
		a.LastUpdated = a.CreatedAt
	}
	return nil
}

// ResolutionRecord is the append-only output of a completed cycle: the
// reconciled resolution together with the escalation decision that was made for it.
type ResolutionRecord struct {
	ID                    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CycleID               uuid.UUID      `gorm:"type:uuid;not null;index" json:"cycle_id"`
	Category              string         `gorm:"column:category;not null;index" json:"category"`
	ProductArea           string         `gorm:"column:product_area" json:"product_area,omitempty"`
	AffectedCount         int            `gorm:"column:affected_count;not null" json:"affected_count"`
	MaxSeverity           int            `gorm:"column:max_severity;not null" json:"max_severity"`
	Summary               string         `gorm:"column:summary" json:"summary"`
	RootCause             string         `gorm:"column:root_cause" json:"root_cause"`
	Steps                 string         `gorm:"column:steps" json:"steps"`
	Verification          string         `gorm:"column:verification" json:"verification"`
	Prevention            string         `gorm:"column:prevention" json:"prevention"`
	CommunicationTemplate string         `gorm:"column:communication_template" json:"communication_template"`
	ArticlesUsed          datatypes.JSON `gorm:"column:articles_used" json:"articles_used"`
	EscalationScore       int            `gorm:"column:escalation_score;not null" json:"escalation_score"`
	EscalationLevel       string         `gorm:"column:escalation_level;not null" json:"escalation_level"`
	EscalationTeam        string         `gorm:"column:escalation_team" json:"escalation_team"`
	EscalationSLASeconds  int64          `gorm:"column:escalation_sla_seconds" json:"escalation_sla_seconds"`
	EscalationReasons     datatypes.JSON `gorm:"column:escalation_reasons" json:"escalation_reasons"`
	Escalated             bool           `gorm:"column:escalated;not null;index" json:"escalated"`
	ConsistencyChanges    string         `gorm:"column:consistency_changes" json:"consistency_changes,omitempty"`
	GeneratedAt           time.Time      `gorm:"column:generated_at;not null;index" json:"generated_at"`
	CreatedAt             time.Time      `gorm:"not null" json:"created_at"`
}

func (ResolutionRecord) TableName() string { return "resolution_record" }

func (r *ResolutionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if len(r.ArticlesUsed) == 0 {
		r.ArticlesUsed = datatypes.JSON([]byte("[]"))
	}
	if len(r.EscalationReasons) == 0 {
		r.EscalationReasons = datatypes.JSON([]byte("[]"))
	}
	return nil
}
