// Package notify delivers completed cycles to operators: the dashboard stream,
// ticket comments, alert email and escalation pages.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/observability"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/platform/sendgrid"
	"github.com/yungbote/trendwatch-backend/internal/realtime"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
)

const (
	ChannelUI         = "ui"
	ChannelEmail      = "email"
	ChannelTicket     = "ticket"
	ChannelEscalation = "escalation"
)

type DashboardUpdate struct {
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	CycleID        string    `json:"cycle_id"`
	RecordID       string    `json:"record_id"`
	Category       string    `json:"category"`
	ProductArea    string    `json:"product_area,omitempty"`
	Summary        string    `json:"summary"`
	Steps          string    `json:"steps"`
	Verification   string    `json:"verification"`
	AffectedUsers  int       `json:"affected_users"`
	EscalationRisk string    `json:"escalation_level"`
	GeneratedAt    time.Time `json:"generated_at"`
}

type TicketUpdate struct {
	RecordID          string   `json:"record_id"`
	Category          string   `json:"category"`
	ProductArea       string   `json:"product_area,omitempty"`
	AffectedCustomers int      `json:"affected_customers"`
	IncidentRefs      []string `json:"incident_refs"`
	Comment           string   `json:"comment"`
	ArticlesUsed      []string `json:"kb_articles"`
}

type EscalationPage struct {
	CycleID     string   `json:"cycle_id"`
	RecordID    string   `json:"record_id"`
	Category    string   `json:"category"`
	Level       string   `json:"level"`
	Team        string   `json:"team"`
	SLASeconds  int64    `json:"sla_seconds"`
	Score       int      `json:"score"`
	Reasons     []string `json:"reasons"`
	Affected    int      `json:"affected"`
	MaxSeverity int      `json:"max_severity"`
}

type Notifier struct {
	log     *logger.Logger
	bus     bus.Bus
	mailer  sendgrid.Client
	emailTo []sendgrid.EmailAddress
}

// New builds a notifier. mailer may be nil, in which case email is skipped.
func New(log *logger.Logger, b bus.Bus, mailer sendgrid.Client, emailTo []string) *Notifier {
	if log == nil {
		log = logger.Nop()
	}
	to := make([]sendgrid.EmailAddress, 0, len(emailTo))
	for _, addr := range emailTo {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, sendgrid.EmailAddress{Email: addr})
		}
	}
	return &Notifier{log: log.With("component", "Notifier"), bus: b, mailer: mailer, emailTo: to}
}

// Notify attempts every channel and joins the failures.
func (n *Notifier) Notify(ctx context.Context, note pipeline.Notification) error {
	log := n.log.With("cycle_id", note.CycleID, "record_id", note.RecordID)
	var errs []error
	deliver := func(channel string, fn func() error) {
		err := fn()
		observability.Current().ObserveNotification(channel, err)
		if err != nil {
			log.Warn("notification channel failed", "channel", channel, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
			return
		}
		log.Debug("notification delivered", "channel", channel)
	}

	deliver(ChannelUI, func() error { return n.publishDashboard(ctx, note) })
	deliver(ChannelTicket, func() error { return n.publishTicket(ctx, note) })
	if n.mailer != nil && len(n.emailTo) > 0 {
		deliver(ChannelEmail, func() error { return n.sendEmail(ctx, note) })
	}
	if note.Decision.ShouldEscalate {
		deliver(ChannelEscalation, func() error { return n.publishEscalation(ctx, note) })
		log.Warn("human intervention required",
			"level", note.Decision.Level,
			"team", note.Decision.Team,
			"sla", note.Decision.SLA.String(),
			"reasons", strings.Join(note.Decision.Reasons, ", "),
		)
	}
	return errors.Join(errs...)
}

func (n *Notifier) publishDashboard(ctx context.Context, note pipeline.Notification) error {
	if n.bus == nil {
		return fmt.Errorf("bus not configured")
	}
	return n.bus.Publish(ctx, realtime.Message{
		Channel: realtime.ChannelResolutions,
		Event:   realtime.EventResolutionPublished,
		Data:    Dashboard(note),
	})
}

func (n *Notifier) publishTicket(ctx context.Context, note pipeline.Notification) error {
	if n.bus == nil {
		return fmt.Errorf("bus not configured")
	}
	comment, err := TicketComment(note)
	if err != nil {
		return err
	}
	refs := make([]string, 0, len(note.Signal.Incidents))
	for _, inc := range note.Signal.Incidents {
		refs = append(refs, inc.RefID)
	}
	return n.bus.Publish(ctx, realtime.Message{
		Channel: realtime.ChannelTickets,
		Event:   realtime.EventTicketComment,
		Data: TicketUpdate{
			RecordID:          note.RecordID,
			Category:          note.Signal.Category,
			ProductArea:       note.Signal.SubArea,
			AffectedCustomers: note.Signal.Count,
			IncidentRefs:      refs,
			Comment:           comment,
			ArticlesUsed:      note.Resolution.ArticlesUsed,
		},
	})
}

func (n *Notifier) publishEscalation(ctx context.Context, note pipeline.Notification) error {
	if n.bus == nil {
		return fmt.Errorf("bus not configured")
	}
	d := note.Decision
	return n.bus.Publish(ctx, realtime.Message{
		Channel: realtime.ChannelEscalations,
		Event:   realtime.EventEscalationRaised,
		Data: EscalationPage{
			CycleID:     note.CycleID,
			RecordID:    note.RecordID,
			Category:    note.Signal.Category,
			Level:       string(d.Level),
			Team:        d.Team,
			SLASeconds:  int64(d.SLA / time.Second),
			Score:       d.Score,
			Reasons:     d.Reasons,
			Affected:    note.Signal.Count,
			MaxSeverity: note.Signal.MaxSeverity,
		},
	})
}

func (n *Notifier) sendEmail(ctx context.Context, note pipeline.Notification) error {
	subject, err := EmailSubject(note)
	if err != nil {
		return err
	}
	body, err := EmailBody(note)
	if err != nil {
		return err
	}
	_, err = n.mailer.Send(ctx, sendgrid.SendEmailRequest{
		To:         n.emailTo,
		Subject:    subject,
		Text:       body,
		Categories: []string{"trending-issue", note.Signal.Category},
		CustomArgs: map[string]string{"cycle_id": note.CycleID, "record_id": note.RecordID},
	})
	return err
}

// Dashboard is the payload the operator dashboard renders for a resolution.
func Dashboard(note pipeline.Notification) DashboardUpdate {
	return DashboardUpdate{
		Type:           "trending_issue",
		Status:         "active",
		CycleID:        note.CycleID,
		RecordID:       note.RecordID,
		Category:       note.Signal.Category,
		ProductArea:    note.Signal.SubArea,
		Summary:        note.Summary,
		Steps:          note.Resolution.Steps,
		Verification:   note.Resolution.Verification,
		AffectedUsers:  note.Signal.Count,
		EscalationRisk: string(note.Decision.Level),
		GeneratedAt:    note.Resolution.GeneratedAt,
	}
}
