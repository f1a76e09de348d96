package export

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jingxuan-bi/report-service/internal/models"
)

// JobStatus is the lifecycle state of an export job. Transitions are
// monotonic: pending, processing, then completed or failed.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks one spreadsheet export from submission to its terminal
// state.
type Job struct {
	ID          string              `json:"id"`
	ReportType  string              `json:"report_type"`
	Status      JobStatus           `json:"status"`
	Params      *models.QueryParams `json:"params"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	FileName    string              `json:"file_name,omitempty"`
	FilePath    string              `json:"-"`
	FileSize    int64               `json:"file_size,omitempty"`
	Total       int64               `json:"total"`
	Progress    int                 `json:"progress"`
	Error       string              `json:"error,omitempty"`
	DownloadURL string              `json:"download_url,omitempty"`
}

// NewJob creates a pending job with a fresh id. The download URL is
// derived from the id up front so clients can poll it immediately,
// even though the file only exists once the job completes.
func NewJob(reportType string, params *models.QueryParams) *Job {
	now := time.Now()
	id := newJobID(reportType, now)
	return &Job{
		ID:          id,
		ReportType:  reportType,
		Status:      StatusPending,
		Params:      params,
		CreatedAt:   now,
		UpdatedAt:   now,
		DownloadURL: "/api/v1/export/download/" + id,
	}
}

func newJobID(reportType string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s_%d_%s", reportType, now.UnixMilli(), suffix)
}

// JobStore holds export jobs. Update applies its mutation under the
// store lock so a terminal transition lands in one critical section.
type JobStore interface {
	Put(job *Job)
	Get(id string) (*Job, bool)
	List() []*Job
	Update(id string, fn func(*Job)) bool
	Delete(id string)
}

// MemoryStore is the in-process JobStore. Jobs do not survive a
// restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

func (s *MemoryStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *MemoryStore) Get(id string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// List returns copies of every job, newest first.
func (s *MemoryStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		copied := *job
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) Update(id string, fn func(*Job)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return true
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}
