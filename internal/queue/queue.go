// Package queue is the in-memory processing queue for extraction jobs and the
// single worker that drains it.
package queue

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
)

// Job is the in-memory record of one query in the queue.
type Job struct {
	QueryID    string             `json:"query_id"`
	Status     domain.QueryStatus `json:"status"`
	Error      string             `json:"error,omitempty"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
	StartedAt  *time.Time         `json:"started_at,omitempty"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`

	seq uint64
}

type EnqueueResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

type Counts struct {
	Queued   int `json:"queued"`
	Running  int `json:"running"`
	Paused   int `json:"paused"`
	Complete int `json:"complete"`
	Error    int `json:"error"`
}

// Snapshot is a consistent view of the queue taken under its lock.
type Snapshot struct {
	Counts             Counts        `json:"counts"`
	Waiting            int           `json:"waiting"`
	Paused             bool          `json:"paused"`
	Current            string        `json:"current,omitempty"`
	Processed          int           `json:"processed"`
	Failed             int           `json:"failed"`
	AvgDuration        time.Duration `json:"avg_duration"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
	FatalError         string        `json:"fatal_error,omitempty"`
}

// Queue holds jobs in FIFO order. Every method is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	waiting []string // queued and paused jobs, head first
	current string
	paused  bool
	fatal   error
	seq     uint64

	processed     int
	failed        int
	totalDuration time.Duration
	timedJobs     int

	defaultDuration time.Duration
	wake            chan struct{}
	now             func() time.Time
}

// New creates an empty queue. defaultDuration is the per-job estimate used
// for the ETA until a job has been timed.
func New(defaultDuration time.Duration) *Queue {
	return &Queue{
		jobs:            make(map[string]*Job),
		defaultDuration: defaultDuration,
		wake:            make(chan struct{}, 1),
		now:             time.Now,
	}
}

// Wake returns a channel signaled whenever runnable work may be available.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) waitingStatus() domain.QueryStatus {
	if q.paused {
		return domain.QueryStatusPaused
	}
	return domain.QueryStatusQueued
}

// Enqueue appends ids in order. Ids already queued, running or paused are
// skipped, so enqueueing the same id twice never duplicates work.
func (q *Queue) Enqueue(ids []string) EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	res := EnqueueResult{Added: []string{}, Skipped: []string{}}
	for _, id := range ids {
		job, ok := q.jobs[id]
		if ok && isActive(job.Status) {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if !ok {
			q.seq++
			job = &Job{QueryID: id, seq: q.seq}
			q.jobs[id] = job
		}
		job.Status = q.waitingStatus()
		job.Error = ""
		job.EnqueuedAt = q.now()
		job.StartedAt = nil
		job.FinishedAt = nil
		q.waiting = append(q.waiting, id)
		res.Added = append(res.Added, id)
	}
	if len(res.Added) > 0 {
		q.signal()
	}
	return res
}

func isActive(s domain.QueryStatus) bool {
	return s == domain.QueryStatusQueued || s == domain.QueryStatusRunning || s == domain.QueryStatusPaused
}

// Pause stops new jobs from starting and returns the ids moved to paused. A
// running job finishes normally.
func (q *Queue) Pause() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.paused = true
	var moved []string
	for _, id := range q.waiting {
		if job := q.jobs[id]; job.Status == domain.QueryStatusQueued {
			job.Status = domain.QueryStatusPaused
			moved = append(moved, id)
		}
	}
	return moved
}

// Resume restarts processing, clears a latched fatal error and returns the
// ids moved back to queued. Their relative order is unchanged.
func (q *Queue) Resume() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.paused = false
	q.fatal = nil
	var moved []string
	for _, id := range q.waiting {
		if job := q.jobs[id]; job.Status == domain.QueryStatusPaused {
			job.Status = domain.QueryStatusQueued
			moved = append(moved, id)
		}
	}
	q.signal()
	return moved
}

// RetryFailed re-enqueues every errored job in the order it was first
// enqueued, clearing its error.
func (q *Queue) RetryFailed() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*Job
	for _, job := range q.jobs {
		if job.Status == domain.QueryStatusError {
			failed = append(failed, job)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].seq < failed[j].seq })

	ids := make([]string, 0, len(failed))
	for _, job := range failed {
		job.Status = q.waitingStatus()
		job.Error = ""
		job.EnqueuedAt = q.now()
		job.StartedAt = nil
		job.FinishedAt = nil
		q.waiting = append(q.waiting, job.QueryID)
		ids = append(ids, job.QueryID)
	}
	if len(ids) > 0 {
		q.signal()
	}
	return ids
}

// Failed returns the ids of errored jobs in the order they were first enqueued.
func (q *Queue) Failed() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*Job
	for _, job := range q.jobs {
		if job.Status == domain.QueryStatusError {
			failed = append(failed, job)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].seq < failed[j].seq })

	ids := make([]string, len(failed))
	for i, job := range failed {
		ids[i] = job.QueryID
	}
	return ids
}

// Remove drops waiting (queued or paused) jobs and returns the removed ids.
// Running and finished jobs are left alone.
func (q *Queue) Remove(ids []string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	removed := make([]string, 0, len(ids))
	q.waiting = slices.DeleteFunc(q.waiting, func(id string) bool {
		if !drop[id] {
			return false
		}
		delete(q.jobs, id)
		removed = append(removed, id)
		return true
	})
	return removed
}

// Forget drops every job for ids that is not running, finished jobs included.
// It is used when the queries themselves are deleted.
func (q *Queue) Forget(ids []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range ids {
		if job, ok := q.jobs[id]; ok && job.Status != domain.QueryStatusRunning {
			delete(q.jobs, id)
		}
	}
	q.waiting = slices.DeleteFunc(q.waiting, func(id string) bool {
		_, ok := q.jobs[id]
		return !ok
	})
}

// Clear drops every job except the running one and returns the ids that were
// still waiting.
func (q *Queue) Clear() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	cleared := append([]string(nil), q.waiting...)
	for id, job := range q.jobs {
		if job.Status != domain.QueryStatusRunning {
			delete(q.jobs, id)
		}
	}
	q.waiting = nil
	return cleared
}

// Position returns the 1-based place of id among waiting jobs.
func (q *Queue) Position(id string) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, w := range q.waiting {
		if w == id {
			return i + 1, true
		}
	}
	return 0, false
}

func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Waiting returns the ids of queued and paused jobs, head first.
func (q *Queue) Waiting() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.waiting...)
}

// Halted returns the latched fatal error, if any. It matches
// domain.ErrQueueHalted and the extraction error that caused it.
func (q *Queue) Halted() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.fatal
}

func (q *Queue) Status() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{
		Waiting:   len(q.waiting),
		Paused:    q.paused,
		Current:   q.current,
		Processed: q.processed,
		Failed:    q.failed,
	}
	for _, job := range q.jobs {
		switch job.Status {
		case domain.QueryStatusQueued:
			s.Counts.Queued++
		case domain.QueryStatusRunning:
			s.Counts.Running++
		case domain.QueryStatusPaused:
			s.Counts.Paused++
		case domain.QueryStatusComplete:
			s.Counts.Complete++
		case domain.QueryStatusError:
			s.Counts.Error++
		}
	}
	if q.fatal != nil {
		s.FatalError = q.fatal.Error()
	}

	per := q.defaultDuration
	if q.timedJobs > 0 {
		s.AvgDuration = q.totalDuration / time.Duration(q.timedJobs)
		per = s.AvgDuration
	}
	s.EstimatedRemaining = time.Duration(len(q.waiting)) * per
	return s
}

// ResetStats zeroes the processed/failed counters and duration history and
// drops finished jobs. Until then complete and error jobs stay in memory so
// RetryFailed can replay failures in their original order.
func (q *Queue) ResetStats() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processed = 0
	q.failed = 0
	q.totalDuration = 0
	q.timedJobs = 0
	for id, job := range q.jobs {
		if job.Status == domain.QueryStatusComplete || job.Status == domain.QueryStatusError {
			delete(q.jobs, id)
		}
	}
}

// next pops the head job and marks it running. It returns false while the
// queue is paused, halted, busy or empty.
func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || q.fatal != nil || q.current != "" || len(q.waiting) == 0 {
		return "", false
	}
	id := q.waiting[0]
	q.waiting = q.waiting[1:]

	job := q.jobs[id]
	now := q.now()
	job.Status = domain.QueryStatusRunning
	job.StartedAt = &now
	q.current = id
	return id, true
}

// finish records the outcome of the running job.
func (q *Queue) finish(id string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == id {
		q.current = ""
	}
	job, ok := q.jobs[id]
	if !ok {
		return
	}

	now := q.now()
	if job.StartedAt != nil {
		q.totalDuration += now.Sub(*job.StartedAt)
		q.timedJobs++
	}
	job.FinishedAt = &now

	if err != nil {
		job.Status = domain.QueryStatusError
		job.Error = err.Error()
		q.failed++
		return
	}
	job.Status = domain.QueryStatusComplete
	q.processed++
}

// halt puts the running job back at the head of the line and latches err
// until Resume.
func (q *Queue) halt(id string, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current == id {
		q.current = ""
	}
	q.fatal = fmt.Errorf("%w: %w", domain.ErrQueueHalted, err)
	job, ok := q.jobs[id]
	if !ok {
		return
	}
	job.Status = q.waitingStatus()
	job.StartedAt = nil
	q.waiting = append([]string{id}, q.waiting...)
}
