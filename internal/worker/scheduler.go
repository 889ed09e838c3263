package worker

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the periodic mirror every 15 minutes.
const DefaultSchedule = "@every 15m"

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// NewScheduler creates a scheduler whose jobs run with ctx. Overlapping runs
// of the same job are skipped.
func NewScheduler(ctx context.Context) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:  ctx,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	slog.InfoContext(s.ctx, "Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("Scheduler stopped")
}

// AddJob registers job on a standard five-field schedule or a descriptor
// such as "@hourly" or "@every 30m".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := s.RunNow(job); err != nil {
			slog.ErrorContext(s.ctx, "Job failed", "job", job.Name(), "error", err)
		}
	})
	if err != nil {
		return err
	}
	slog.InfoContext(s.ctx, "Job registered", "job", job.Name(), "schedule", schedule)
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	slog.DebugContext(s.ctx, "Running job", "job", job.Name())
	return job.Run(s.ctx)
}

// MirrorJob runs the periodic mirror of a SyncWorker.
type MirrorJob struct {
	Worker *SyncWorker
}

func (j MirrorJob) Name() string { return "ledger-mirror" }

func (j MirrorJob) Run(ctx context.Context) error {
	return j.Worker.PeriodicSync(ctx)
}
