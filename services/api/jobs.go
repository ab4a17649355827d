package api

import (
	"sync"
	"time"

	"github.com/google/uuid"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type Job struct {
	ID        string               `json:"job_id"`
	Status    JobStatus            `json:"status"`
	Request   *pb.BacktestRequest  `json:"request"`
	Response  *pb.BacktestResponse `json:"response,omitempty"`
	Error     *APIError            `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

func (j *Job) done() bool { return j.Status == JobCompleted || j.Status == JobFailed }

// JobStore keeps the most recent jobs in memory. Finished jobs beyond the
// limit are evicted oldest first.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
	limit int
}

func NewJobStore(limit int) *JobStore {
	if limit <= 0 {
		limit = 1000
	}
	return &JobStore{jobs: map[string]*Job{}, limit: limit}
}

func (s *JobStore) Create(req *pb.BacktestRequest) Job {
	now := time.Now().UTC()
	j := &Job{ID: uuid.NewString(), Status: JobQueued, Request: req, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
	s.order = append(s.order, j.ID)
	s.evict()
	return *j
}

func (s *JobStore) evict() {
	for i := 0; len(s.jobs) > s.limit && i < len(s.order); {
		id := s.order[i]
		if j, ok := s.jobs[id]; ok && j.done() {
			delete(s.jobs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			continue
		}
		i++
	}
}

func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (s *JobStore) update(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = time.Now().UTC()
	}
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
