// internal/api/job/store.go
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/core"
)

// Status represents job status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Job types.
const (
	TypeExport   = "export"
	TypeBriefing = "briefing"
)

// Job represents an async job.
type Job struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Result    any         `json:"result,omitempty"`
	Error     *core.Error `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Done reports whether the job has finished.
func (j Job) Done() bool {
	return j.Status == StatusComplete || j.Status == StatusFailed
}

// ActiveFunc receives the number of unfinished jobs of a type after each change.
type ActiveFunc func(jobType string, count int)

// Store manages async jobs.
type Store struct {
	jobs     map[string]*Job
	order    []string // Track insertion order for eviction
	maxSize  int
	ttl      time.Duration
	clock    clockwork.Clock
	onActive ActiveFunc
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps and expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithActiveFunc reports unfinished job counts, e.g. to a gauge.
func WithActiveFunc(fn ActiveFunc) Option {
	return func(s *Store) {
		s.onActive = fn
	}
}

// NewStore creates a new job store. Finished jobs older than ttl are
// pruned on Create; a zero ttl keeps them until evicted by size.
func NewStore(maxSize int, ttl time.Duration, opts ...Option) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	s := &Store{
		jobs:    make(map[string]*Job),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new job and returns it.
func (s *Store) Create(jobType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.pruneLocked(now)

	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Evict oldest if at capacity
	if len(s.jobs) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.jobs, oldest)
		s.order = s.order[1:]
	}

	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.reportLocked(jobType)

	jobCopy := *job
	return &jobCopy
}

func (s *Store) pruneLocked(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	kept := s.order[:0]
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Done() && now.Sub(j.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
}

func (s *Store) reportLocked(jobType string) {
	if s.onActive == nil {
		return
	}
	n := 0
	for _, j := range s.jobs {
		if j.Type == jobType && !j.Done() {
			n++
		}
	}
	s.onActive(jobType, n)
}

// Get retrieves a job by ID.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, core.WrapError(core.ErrJobNotFound, fmt.Errorf("job %q", id))
	}

	// Return copy to prevent race conditions
	jobCopy := *job
	return &jobCopy, nil
}

// Update modifies a job using an update function.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.WrapError(core.ErrJobNotFound, fmt.Errorf("job %q", id))
	}

	fn(job)
	job.UpdatedAt = s.clock.Now()
	s.reportLocked(job.Type)
	return nil
}

// List returns all jobs, oldest first.
func (s *Store) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Job, 0, len(s.jobs))
	for _, id := range s.order {
		result = append(result, *s.jobs[id])
	}
	return result
}

// Run creates a job and executes fn in the background under a context
// bounded by timeout. fail wraps a non-domain error from fn.
func (s *Store) Run(jobType string, timeout time.Duration, fail *core.Error, fn func(ctx context.Context) (any, error)) *Job {
	j := s.Create(jobType)
	jobID := j.ID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.Update(jobID, func(j *Job) {
			j.Status = StatusRunning
		})

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := fn(ctx)

		if err != nil {
			var ce *core.Error
			if !errors.As(err, &ce) {
				ce = core.WrapError(fail, err)
			}
			s.Update(jobID, func(j *Job) {
				j.Status = StatusFailed
				j.Error = ce
			})
			return
		}

		s.Update(jobID, func(j *Job) {
			j.Status = StatusComplete
			j.Progress = 100
			j.Result = result
		})
	}()

	return j
}

// Wait blocks until every job started with Run has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}
