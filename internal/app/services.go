package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/trendwatch-backend/internal/escalation"
	"github.com/yungbote/trendwatch-backend/internal/jobs"
	"github.com/yungbote/trendwatch-backend/internal/notify"
	"github.com/yungbote/trendwatch-backend/internal/pipeline"
	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
	"github.com/yungbote/trendwatch-backend/internal/platform/openai"
	"github.com/yungbote/trendwatch-backend/internal/platform/sendgrid"
	"github.com/yungbote/trendwatch-backend/internal/realtime/bus"
	"github.com/yungbote/trendwatch-backend/internal/services"
)

type Services struct {
	Store        *services.IncidentStore
	Incidents    services.IncidentService
	Notifier     *notify.Notifier
	Orchestrator *pipeline.Orchestrator
	Runner       *jobs.Runner
	Scheduler    *jobs.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, b bus.Bus) (Services, error) {
	log.Info("Wiring services...")

	store := services.NewIncidentStore(log, reposet.Event, reposet.KnowledgeArticle, reposet.ResolutionRecord, cfg.StoreTimeout)
	incidents := services.NewIncidentService(db, log, reposet.Event, reposet.KnowledgeArticle, reposet.ResolutionRecord)

	var mailer sendgrid.Client
	if len(cfg.NotifyEmailTo) > 0 {
		m, err := sendgrid.New(log, sendgrid.ConfigFromEnv(log))
		if err != nil {
			log.Warn("email notifications disabled", "error", err)
		} else {
			mailer = m
		}
	}
	notifier := notify.New(log, b, mailer, cfg.NotifyEmailTo)

	deps := pipeline.Deps{
		Log:         log,
		Events:      store,
		Knowledge:   store,
		Resolutions: store,
		Notifier:    notifier,
		Scorer:      escalation.NewScorer(escalation.LoadPolicy(cfg.EscalationPolicyPath, log)),
	}
	llm, err := openai.NewClient(log, openai.ConfigFromEnv(log))
	if err != nil {
		log.Warn("text generation disabled; stages use their fallbacks", "error", err)
	} else {
		deps.Text = llm
		deps.Keywords = llm
	}

	orch, err := pipeline.New(cfg.Pipeline, deps)
	if err != nil {
		return Services{}, fmt.Errorf("init pipeline: %w", err)
	}
	runner := jobs.NewRunner(log, orch, cfg.CycleTimeout, b)

	return Services{
		Store:        store,
		Incidents:    incidents,
		Notifier:     notifier,
		Orchestrator: orch,
		Runner:       runner,
		Scheduler:    jobs.NewScheduler(log, runner, cfg.CycleInterval),
	}, nil
}
