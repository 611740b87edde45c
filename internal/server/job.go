package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/shadowcast/internal/raster"
	"github.com/cwbudde/shadowcast/internal/shadow"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

func (s JobState) terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// RenderRequest describes one render job. Paths are on the server host.
type RenderRequest struct {
	Foreground string        `json:"foreground"`
	Background string        `json:"background"`
	Depth      string        `json:"depth,omitempty"`
	Light      *shadow.Light `json:"light,omitempty"`
	Layers     int           `json:"layers,omitempty"`
	// SkipBadDepth overrides the server default when set.
	SkipBadDepth *bool `json:"skipBadDepth,omitempty"`
}

// Validate checks the request before a job is created.
func (r *RenderRequest) Validate() error {
	if r.Foreground == "" {
		return fmt.Errorf("foreground is required")
	}
	if r.Background == "" {
		return fmt.Errorf("background is required")
	}
	if r.Layers < 0 || r.Layers > shadow.MaxLayers {
		return fmt.Errorf("layers must be between 1 and %d", shadow.MaxLayers)
	}
	return nil
}

// params merges the request over the server defaults.
func (r *RenderRequest) params(defaults shadow.Params) shadow.Params {
	p := defaults
	if r.Light != nil {
		p.Light = *r.Light
	}
	if r.Layers != 0 {
		p.Layers = r.Layers
	}
	if r.SkipBadDepth != nil {
		p.SkipBadDepth = *r.SkipBadDepth
	}
	return p
}

// Job represents a render job
type Job struct {
	ID           string            `json:"id"`
	State        JobState          `json:"state"`
	Config       RenderRequest     `json:"config"`
	Stage        string            `json:"stage,omitempty"`
	Light        *shadow.Light     `json:"light,omitempty"`
	Placement    *shadow.Placement `json:"placement,omitempty"`
	DropShadow   string            `json:"dropShadow,omitempty"`
	DepthApplied bool              `json:"depthApplied"`
	Elapsed      time.Duration     `json:"elapsed"`
	StartTime    time.Time         `json:"startTime"`
	EndTime      *time.Time        `json:"endTime,omitempty"`
	Error        string            `json:"error,omitempty"`

	composite  *raster.Buffer
	background *raster.Buffer
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob creates a new job with the given request
func (jm *JobManager) CreateJob(config RenderRequest) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	return job
}

// GetJob returns a snapshot of the job with the given ID
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// publish broadcasts the current state of a job to its stream subscribers
func (jm *JobManager) publish(id string) {
	job, exists := jm.GetJob(id)
	if !exists {
		return
	}
	jm.broadcaster.Broadcast(progressOf(job))
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			snapshot := *job
			runningJobs = append(runningJobs, &snapshot)
		}
	}
	return runningJobs
}

// DeleteJob removes a finished job and drops its stream state. Running or
// pending jobs are left in place and reported as not deletable.
func (jm *JobManager) DeleteJob(id string) (existed bool, err error) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return false, nil
	}
	if !job.State.terminal() {
		return true, fmt.Errorf("job %s is still %s", id, job.State)
	}

	delete(jm.jobs, id)
	jm.broadcaster.CleanupJob(id)
	return true, nil
}
