package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-co-op/gocron/v2"
)

// JobStatus represents the status of a job.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobInfo is a snapshot of a scheduled job.
type JobInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Schedule   string    `json:"schedule"`
	Status     JobStatus `json:"status"`
	LastRun    time.Time `json:"lastRun"`
	NextRun    time.Time `json:"nextRun"`
	RunCount   int       `json:"runCount"`
	ErrorCount int       `json:"errorCount"`
	LastError  string    `json:"lastError,omitempty"`
}

// JobFunc is the work of a job.
type JobFunc func(ctx context.Context) error

type job struct {
	info       JobInfo
	gocron     gocron.Job
	runOnStart bool
}

// Scheduler runs background jobs. Every job is a singleton: a run that is due
// while the previous one is still going is rescheduled.
type Scheduler struct {
	gocron gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a new scheduler.
func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(newLogger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		gocron: s,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*job),
	}, nil
}

// AddCronJob schedules fn with a 5 field cron expression.
func (s *Scheduler) AddCronJob(id, name, cron string, fn JobFunc, runOnStart bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return fmt.Errorf("job %s already exists", id)
	}

	j := &job{
		info: JobInfo{
			ID:       id,
			Name:     name,
			Schedule: cron,
			Status:   JobStatusScheduled,
		},
		runOnStart: runOnStart,
	}

	gj, err := s.gocron.NewJob(gocron.CronJob(cron, false),
		gocron.NewTask(s.wrap(j, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create job %s: %w", id, err)
	}
	j.gocron = gj
	s.jobs[id] = j

	log.Info("Added job to scheduler", "id", id, "name", name, "schedule", cron)
	return nil
}

// Start starts the scheduler and triggers the jobs marked to run on start.
func (s *Scheduler) Start() {
	log.Info("Starting job scheduler")
	s.gocron.Start()

	s.mu.Lock()
	var immediate []string
	for id, j := range s.jobs {
		if next, err := j.gocron.NextRun(); err == nil {
			j.info.NextRun = next
		}
		if j.runOnStart {
			immediate = append(immediate, id)
		}
	}
	s.mu.Unlock()

	for _, id := range immediate {
		if err := s.RunJobNow(id); err != nil {
			log.Error("Failed to run job after start", "id", id, "error", err)
		}
	}
}

// Stop cancels running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	log.Info("Stopping job scheduler")
	s.cancel()
	return s.gocron.Shutdown()
}

// RunJobNow triggers a job outside of its schedule.
func (s *Scheduler) RunJobNow(id string) error {
	s.mu.RLock()
	j, exists := s.jobs[id]
	s.mu.RUnlock()
	if !exists {
		return fmt.Errorf("job %s not found", id)
	}

	log.Info("Manually triggering job", "id", id, "name", j.info.Name)
	if err := j.gocron.RunNow(); err != nil {
		return fmt.Errorf("failed to trigger job %s: %w", id, err)
	}
	return nil
}

// GetJobs returns a snapshot of every job. It backs the job metrics.
func (s *Scheduler) GetJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j.info)
	}
	return jobs
}

func (s *Scheduler) wrap(j *job, fn JobFunc) func() {
	return func() {
		s.mu.Lock()
		j.info.Status = JobStatusRunning
		j.info.LastRun = time.Now()
		j.info.RunCount++
		s.mu.Unlock()

		log.Info("Starting job", "id", j.info.ID)
		err := fn(s.ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if next, nerr := j.gocron.NextRun(); nerr == nil {
			j.info.NextRun = next
		}
		if err != nil {
			log.Error("Job failed", "id", j.info.ID, "error", err)
			j.info.Status = JobStatusFailed
			j.info.ErrorCount++
			j.info.LastError = err.Error()
			return
		}
		log.Info("Job completed successfully", "id", j.info.ID)
		j.info.Status = JobStatusCompleted
		j.info.LastError = ""
	}
}
