package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/service/whatsapp"
)

// Reporter produces the periodic ledger reports.
type Reporter interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
	PublishSummary(ctx context.Context, now time.Time) error
	ArchiveSummary(ctx context.Context, now time.Time) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	schedule  string
	reporter  Reporter
	messaging whatsapp.MessagingService
	managerID string
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler firing on schedule in loc. messaging may be
// nil, in which case the weekly report is only logged.
func NewScheduler(schedule string, loc *time.Location, reporter Reporter, messaging whatsapp.MessagingService, managerID string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		schedule:  schedule,
		reporter:  reporter,
		messaging: messaging,
		managerID: managerID,
		logger:    logger,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Start registers the weekly report and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendWeeklyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s.runWeeklyReport(ctx)
}

// runWeeklyReport sends the digest, then publishes and archives the summary.
// Each step is attempted even when an earlier one fails.
func (s *Scheduler) runWeeklyReport(ctx context.Context) {
	now := s.now()
	s.logger.Info("generating weekly report")

	report, err := s.reporter.GenerateWeeklyReport(ctx, now)
	switch {
	case err != nil:
		s.logger.Error("failed to generate weekly report", zap.Error(err))
	case s.messaging == nil || s.managerID == "":
		s.logger.Info("weekly report", zap.String("report", report))
	default:
		req := models.OutboundMessageRequest{To: s.managerID, Message: report}
		if err := s.messaging.SendOutbound(ctx, req); err != nil {
			s.logger.Error("failed to send weekly report", zap.Error(err))
		} else {
			s.logger.Info("weekly report sent successfully")
		}
	}

	if err := s.reporter.PublishSummary(ctx, now); err != nil {
		s.logger.Error("failed to publish summary", zap.Error(err))
	}
	if err := s.reporter.ArchiveSummary(ctx, now); err != nil {
		s.logger.Error("failed to archive summary", zap.Error(err))
	}
}
