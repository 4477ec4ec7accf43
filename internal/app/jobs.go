package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"investment-monitor/models"
	"investment-monitor/observability"
)

// JobStatus is the lifecycle state of a background refresh.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// RefreshJob describes a background refresh.
type RefreshJob struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Refreshed  int        `json:"refreshed"`
	Stale      int        `json:"stale"`
	Missing    []string   `json:"missing,omitempty"`
	Version    uint64     `json:"version,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ErrShuttingDown is returned for work requested after Shutdown began.
var ErrShuttingDown = errors.New("application is shutting down")

// StartRefresh launches a refresh in the background and returns its job id.
// It fails with models.ErrRefreshInProgress while another refresh runs.
func (a *App) StartRefresh() (string, error) {
	a.jobsMu.Lock()
	if a.stopping {
		a.jobsMu.Unlock()
		return "", ErrShuttingDown
	}
	if a.active != "" || a.engine.Refreshing() {
		a.jobsMu.Unlock()
		return "", models.ErrRefreshInProgress
	}
	job := &RefreshJob{
		ID:        uuid.New().String(),
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	a.active = job.ID
	a.addJobLocked(job)
	a.wg.Add(1)
	a.jobsMu.Unlock()

	go a.runJob(job.ID)
	return job.ID, nil
}

func (a *App) runJob(id string) {
	defer a.wg.Done()

	log := observability.WithRefresh(id)
	ctx := observability.ContextWithRefreshID(a.ctx, id)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh panicked: %v", r)
			log.Error("refresh job panicked", "panic", r)
			a.finishJob(id, func(j *RefreshJob) { j.Status = JobFailed; j.Error = err.Error() })
		}
	}()

	log.Info("refresh job started")
	res, err := a.engine.RefreshQuotes(ctx)
	if err != nil {
		log.Warn("refresh job failed", "error", err)
		a.finishJob(id, func(j *RefreshJob) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
		return
	}

	a.finishJob(id, func(j *RefreshJob) {
		j.Status = JobSucceeded
		j.Refreshed = res.Refreshed
		j.Stale = res.Stale
		j.Missing = res.Missing
		j.Version = res.Version
	})
	log.Info("refresh job finished", "refreshed", res.Refreshed, "missing", len(res.Missing))
}

func (a *App) finishJob(id string, fn func(j *RefreshJob)) {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	if j, ok := a.jobs[id]; ok {
		fn(j)
		now := time.Now()
		j.FinishedAt = &now
	}
	if a.active == id {
		a.active = ""
	}
}

func (a *App) addJobLocked(job *RefreshJob) {
	a.jobs[job.ID] = job
	a.jobOrder = append(a.jobOrder, job.ID)
	for len(a.jobOrder) > maxJobHistory {
		delete(a.jobs, a.jobOrder[0])
		a.jobOrder = a.jobOrder[1:]
	}
}

// Job returns a copy of the job with id.
func (a *App) Job(id string) (RefreshJob, bool) {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	j, ok := a.jobs[id]
	if !ok {
		return RefreshJob{}, false
	}
	out := *j
	out.Missing = append([]string(nil), j.Missing...)
	return out, true
}

// Jobs returns the recent jobs, newest first.
func (a *App) Jobs() []RefreshJob {
	a.jobsMu.Lock()
	defer a.jobsMu.Unlock()
	out := make([]RefreshJob, 0, len(a.jobOrder))
	for i := len(a.jobOrder) - 1; i >= 0; i-- {
		out = append(out, *a.jobs[a.jobOrder[i]])
	}
	return out
}

// refreshJob adapts StartRefresh to the scheduler.
type refreshJob struct {
	app *App
}

func (j refreshJob) Name() string { return "quote-refresh" }

func (j refreshJob) Run() error {
	_, err := j.app.StartRefresh()
	if errors.Is(err, models.ErrRefreshInProgress) {
		observability.Debug("scheduled refresh skipped, one is already running")
		return nil
	}
	return err
}
