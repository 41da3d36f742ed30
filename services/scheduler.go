package services

import (
	"context"
	"time"

	"github.com/LovationAdmin/trackit-api/utils"
	"github.com/robfig/cron/v3"
)

const jobTimeout = 30 * time.Second

// RateRefresher reloads exchange rates.
type RateRefresher interface {
	Refresh(ctx context.Context) error
}

type scheduledJob struct {
	spec string
	fn   func(ctx context.Context)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron          *cron.Cron
	notifications *NotificationService
	budgets       *BudgetService
	rates         RateRefresher
}

// cronLogger routes cron's own messages, recovered job panics included,
// through the process logger.
func cronLogger() cron.Logger {
	return cron.PrintfLogger(utils.Logger)
}

func NewScheduler(notifications *NotificationService, budgets *BudgetService, rates RateRefresher) *Scheduler {
	return &Scheduler{
		cron:          cron.New(cron.WithLogger(cronLogger()), cron.WithChain(cron.Recover(cronLogger()))),
		notifications: notifications,
		budgets:       budgets,
		rates:         rates,
	}
}

// Start registers the jobs and starts the cron loop. The rate cache is
// warmed immediately when configured.
func (s *Scheduler) Start() error {
	jobs := []scheduledJob{
		// Purge quotidienne des notifications lues
		{"0 3 * * *", s.PurgeNotifications},
		{"@hourly", s.SweepBudgets},
	}
	if s.rates != nil {
		// Le flux BCE est publié vers 16h CET les jours ouvrés
		jobs = append(jobs, scheduledJob{"30 16 * * 1-5", s.RefreshRates})
	}

	for _, job := range jobs {
		fn := job.fn
		if _, err := s.cron.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			fn(ctx)
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	utils.SafeInfo("Scheduler started with %d jobs", len(jobs))

	if s.rates != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			s.RefreshRates(ctx)
		}()
	}
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) PurgeNotifications(ctx context.Context) {
	_, _ = s.notifications.PurgeRead(ctx)
}

func (s *Scheduler) SweepBudgets(ctx context.Context) {
	_, _ = s.budgets.SweepAlerts(ctx)
}

func (s *Scheduler) RefreshRates(ctx context.Context) {
	if s.rates == nil {
		return
	}
	err := s.rates.Refresh(ctx)
	utils.LogJob("refresh_rates", 0, err)
}
