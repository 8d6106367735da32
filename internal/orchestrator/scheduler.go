package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/gregleo12/spooky-football-engine/internal/config"
	"github.com/gregleo12/spooky-football-engine/internal/domain"
)

// Runner is the orchestrator surface the scheduler drives.
type Runner interface {
	Refresh(ctx context.Context, scope Scope) (*Report, error)
	Running() bool
}

// JobStatus describes one configured job for the health endpoint.
type JobStatus struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	Enabled   bool      `json:"enabled"`
	NextRun   time.Time `json:"next_run,omitempty"`
	LastRun   time.Time `json:"last_run,omitempty"`
	Runs      int       `json:"runs"`
	Skips     int       `json:"skips"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler fires configured refresh jobs on their cron schedules. A job
// that comes due while a refresh is still running is skipped, not queued.
type Scheduler struct {
	runner Runner
	cron   *cron.Cron

	mu      sync.Mutex
	status  map[string]*JobStatus
	entries map[string]cron.EntryID
}

// NewScheduler registers every configured job. Disabled jobs are tracked
// for status reporting but never fire. An unparsable cron expression is a
// configuration error.
func NewScheduler(runner Runner, cfg *config.ScheduleConfig) (*Scheduler, error) {
	s := &Scheduler{
		runner:  runner,
		cron:    cron.New(cron.WithLogger(cron.VerbosePrintfLogger(cronLog{}))),
		status:  make(map[string]*JobStatus, len(cfg.Jobs)),
		entries: make(map[string]cron.EntryID, len(cfg.Jobs)),
	}

	for _, job := range cfg.Jobs {
		job := job
		s.status[job.Name] = &JobStatus{Name: job.Name, Schedule: job.Cron, Enabled: job.Enabled}
		if !job.Enabled {
			continue
		}

		id, err := s.cron.AddFunc(job.Cron, func() { s.runJob(job) })
		if err != nil {
			return nil, domain.WrapError(domain.KindConfiguration,
				fmt.Sprintf("job %q has an invalid cron expression %q", job.Name, job.Cron), err)
		}
		s.entries[job.Name] = id
	}
	return s, nil
}

// Start begins firing jobs. Safe to call once.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.entries)).Msg("Refresh scheduler started")
}

// Stop halts scheduling and waits for a running job to finish, bounded by
// the given context.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Info().Msg("Refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs returns the status of every configured job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.status))
	for name, st := range s.status {
		copied := *st
		if id, ok := s.entries[name]; ok {
			copied.NextRun = s.cron.Entry(id).Next
		}
		out = append(out, copied)
	}
	return out
}

func (s *Scheduler) runJob(job config.ScheduleJob) {
	if s.runner.Running() {
		s.markSkip(job.Name)
		log.Info().Str("job", job.Name).Msg("Refresh still running, skipping scheduled job")
		return
	}

	scope := Scope{
		Competitions: job.Competitions,
		Parameters:   job.DomainParameters(),
		Trigger:      TriggerScheduled,
	}

	log.Info().Str("job", job.Name).Msg("Scheduled refresh starting")
	_, err := s.runner.Refresh(context.Background(), scope)
	if errors.Is(err, ErrAlreadyRunning) {
		// Lost the race against a run that started after the check above.
		s.markSkip(job.Name)
		log.Info().Str("job", job.Name).Msg("Refresh still running, skipping scheduled job")
		return
	}

	s.markRun(job.Name, err)
	if err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Scheduled refresh failed")
	}
}

func (s *Scheduler) markSkip(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.status[name]; ok {
		st.Skips++
	}
}

func (s *Scheduler) markRun(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[name]
	if !ok {
		return
	}
	st.Runs++
	st.LastRun = time.Now().UTC()
	st.LastError = ""
	if err != nil {
		st.LastError = err.Error()
	}
}

// cronLog routes the cron library's chatter to the debug level.
type cronLog struct{}

func (cronLog) Printf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}
