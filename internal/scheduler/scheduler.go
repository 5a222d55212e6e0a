// Package scheduler runs the periodic maintenance jobs: daily occupancy
// snapshots, the occupancy audit, booking retention cleanup and rate limiter
// housekeeping.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rental-portal/internal/cleanup"
	"rental-portal/internal/config"
	"rental-portal/internal/errorx"
	"rental-portal/internal/integrity"
	"rental-portal/internal/ratelimit"
	"rental-portal/internal/snapshot"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	JobSnapshot  = "snapshot"
	JobAudit     = "audit"
	JobCleanup   = "cleanup"
	JobRateSweep = "ratelimit-sweep"
)

// Recorder counts job outcomes
type Recorder interface {
	JobRun(job string, err error)
}

type nopRecorder struct{}

func (nopRecorder) JobRun(string, error) {}

// Job is a named task. An empty Spec registers it for RunNow only.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler handles scheduled maintenance tasks
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
	rec  Recorder

	mu        sync.Mutex
	jobs      map[string]Job
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler running in loc
func NewScheduler(log *zap.Logger, rec Recorder, loc *time.Location) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		log:    log,
		rec:    rec,
		jobs:   make(map[string]Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job with the cron table
func (s *Scheduler) Add(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	if job.Spec != "" {
		if _, err := s.cron.AddFunc(job.Spec, func() { _ = s.run(s.ctx, job) }); err != nil {
			return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
	}
	s.jobs[job.Name] = job
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.cron.Start()
	s.isRunning = true
	for _, e := range s.cron.Entries() {
		s.log.Debug("job scheduled", zap.Time("next", e.Next))
	}
	s.log.Info("scheduler started", zap.Int("entries", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.log.Info("scheduler stopped")
}

// Jobs lists the registered job names
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow immediately executes a job (for manual trigger)
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return errorx.NotFound("job %q not found", name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	s.log.Info("job started", zap.String("job", job.Name))

	err := job.Run(ctx)
	s.rec.JobRun(job.Name, err)
	if err != nil {
		s.log.Error("job failed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return err
	}
	s.log.Info("job completed", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	return nil
}

// Deps are the services the maintenance jobs drive
type Deps struct {
	Snapshots *snapshot.Service
	Auditor   *integrity.Auditor
	Cleanup   *cleanup.Service
	Limiter   *ratelimit.RateLimiter
}

// MaintenanceJobs builds the standard job set. Jobs are always registered
// so they can be triggered by hand; they get a schedule only when enabled.
func MaintenanceJobs(cfg *config.Config, d Deps) ([]Job, error) {
	sc := cfg.Scheduler
	schedule := func(spec string) string {
		if !sc.Enabled {
			return ""
		}
		return spec
	}

	daily, err := parseDailyRunTime(sc.SnapshotTime)
	if err != nil {
		return nil, err
	}
	interval, err := time.ParseDuration(sc.AuditInterval)
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("invalid audit interval %q", sc.AuditInterval)
	}

	jobs := []Job{
		{
			Name: JobSnapshot,
			Spec: schedule(daily),
			Run: func(ctx context.Context) error {
				_, err := d.Snapshots.CaptureAll(ctx)
				return err
			},
		},
		{
			Name: JobAudit,
			Spec: schedule("@every " + interval.String()),
			Run: func(ctx context.Context) error {
				report, err := d.Auditor.Audit(ctx)
				if err != nil {
					return err
				}
				if !report.OK() {
					return errorx.DataIntegrity("%d units violate the occupancy invariant", len(report.Violations))
				}
				return nil
			},
		},
	}

	cleanupSpec := ""
	if sc.CleanupEnabled {
		cleanupSpec = schedule(weekly(daily, sc.CleanupWeekday))
	}
	jobs = append(jobs, Job{
		Name: JobCleanup,
		Spec: cleanupSpec,
		Run: func(ctx context.Context) error {
			_, err := d.Cleanup.Purge(ctx, cfg.Cleanup)
			return err
		},
	})

	if d.Limiter != nil {
		jobs = append(jobs, Job{
			Name: JobRateSweep,
			Spec: schedule("@hourly"),
			Run: func(context.Context) error {
				d.Limiter.Sweep()
				return nil
			},
		})
	}
	return jobs, nil
}

// parseDailyRunTime converts HH:MM format to cron specification
// Example: "02:00" -> "0 2 * * *" (run at 2:00 AM every day)
func parseDailyRunTime(timeStr string) (string, error) {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return "", fmt.Errorf("invalid daily run time %q, want HH:MM", timeStr)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// weekly pins a daily spec to one weekday (0 = Sunday)
func weekly(daily string, weekday int) string {
	return daily[:len(daily)-1] + fmt.Sprint(((weekday%7)+7)%7)
}
