package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
)

// JobStatus represents the state of a render job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRendering JobStatus = "rendering"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the rendering of one document.
type Job struct {
	mu sync.Mutex

	ID        string   `json:"job_id"`
	Template  string   `json:"template"`
	ShareWith []string `json:"share_with,omitempty"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Result *docs.Result `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	context map[string]any
	err     string
	errors  []string
}

// NewJob creates a queued job for template rendered against data.
func NewJob(template string, data map[string]any, shareWith []string) *Job {
	now := time.Now()
	if data == nil {
		data = map[string]any{}
	}
	return &Job{
		ID:        uuid.NewString(),
		Template:  template,
		ShareWith: shareWith,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		context:   data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Complete marks the job done with the rendered document.
func (j *Job) Complete(res *docs.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Result = res
	j.Status = StatusCompleted
	j.Phase = "done"
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed in the given phase.
func (j *Job) Fail(phase string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err.Error()
	j.Status = StatusFailed
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records a non-fatal error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// Context returns the data the template is rendered against.
func (j *Job) Context() map[string]any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.context
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"job_id"`
	Template   string    `json:"template"`
	Status     JobStatus `json:"status"`
	Phase      string    `json:"phase"`
	Title      string    `json:"title,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Error      string    `json:"error,omitempty"`
	Warnings   []string  `json:"warnings"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	warnings := append([]string{}, j.errors...)
	snap := JobSnapshot{
		ID:        j.ID,
		Template:  j.Template,
		Status:    j.Status,
		Phase:     j.Phase,
		Error:     j.err,
		Warnings:  warnings,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
	if j.Result != nil {
		snap.Title = j.Result.Title
		snap.DocumentID = j.Result.DocumentID
		snap.URL = j.Result.URL
		snap.DurationMs = j.Result.Duration.Milliseconds()
	}
	return snap
}
