package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/guppie70/sectioner/internal/align"
)

// JobStatus represents the state of a split job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusConverting JobStatus = "converting"
	StatusParsing    JobStatus = "parsing"
	StatusMatching   JobStatus = "matching"
	StatusSplitting  JobStatus = "splitting"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Job tracks the state of one document split.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status  JobStatus `json:"status"`
	Phase   string    `json:"phase"`
	Message string    `json:"message"`

	DocumentName string `json:"document"`
	OutlineName  string `json:"outline"`
	OutputFormat string `json:"output_format"`
	OutputDir    string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	documentData []byte
	outlineData  []byte
	specialFiles map[string]bool
	cancel       context.CancelFunc
	result       *align.Result
	errors       []string
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetMessage records the latest progress line.
func (j *Job) SetMessage(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Message = msg
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetResult stores the frozen run result.
func (j *Job) SetResult(res *align.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.UpdatedAt = time.Now()
}

// SetInputs stores the raw uploads for the worker.
func (j *Job) SetInputs(document, outline []byte, special map[string]bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.documentData = document
	j.outlineData = outline
	j.specialFiles = special
}

// Inputs returns the raw uploads.
func (j *Job) Inputs() (document, outline []byte, special map[string]bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.documentData, j.outlineData, j.specialFiles
}

// SetCancel wires the per-job cancel func used by Cancel.
func (j *Job) SetCancel(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancel = cancel
}

// Cancel requests cooperative cancellation. The split stops between
// sections; a section already being written completes first. Returns
// false when the job is already finished.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.Status {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return false
	}
	if j.cancel != nil {
		j.cancel()
	}
	if j.Status == StatusQueued {
		// Not picked up yet; reflect the state immediately so status
		// polls don't show a queued job that will never run.
		j.Status = StatusCancelled
		j.Phase = "cancelled"
	}
	j.Message = "cancellation requested"
	j.UpdatedAt = time.Now()
	return true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string        `json:"job_id"`
	Status       JobStatus     `json:"status"`
	Phase        string        `json:"phase"`
	Message      string        `json:"message,omitempty"`
	DocumentName string        `json:"document"`
	OutlineName  string        `json:"outline"`
	OutputFormat string        `json:"output_format"`
	Result       *align.Result `json:"result,omitempty"`
	Errors       []string      `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.errors
	if errs == nil {
		errs = []string{}
	}
	var res *align.Result
	if j.result != nil {
		copied := *j.result
		res = &copied
	}
	return JobSnapshot{
		ID:           j.ID,
		Status:       j.Status,
		Phase:        j.Phase,
		Message:      j.Message,
		DocumentName: j.DocumentName,
		OutlineName:  j.OutlineName,
		OutputFormat: j.OutputFormat,
		Result:       res,
		Errors:       errs,
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

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
