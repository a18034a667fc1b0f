package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cesargomez89/quarry/internal/domain"
	"github.com/cesargomez89/quarry/internal/logger"
)

type recordingProcessor struct {
	mu      sync.Mutex
	calls   []string
	results map[string][]error // consumed in order per id
	done    chan string
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{results: map[string][]error{}, done: make(chan string, 100)}
}

func (p *recordingProcessor) Process(ctx context.Context, id string) error {
	p.mu.Lock()
	p.calls = append(p.calls, id)
	var err error
	if rs := p.results[id]; len(rs) > 0 {
		err = rs[0]
		p.results[id] = rs[1:]
	}
	p.mu.Unlock()
	p.done <- id
	if err != nil && err.Error() == "panic" {
		panic("processor exploded")
	}
	return err
}

func (p *recordingProcessor) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerProcessesInOrder(t *testing.T) {
	q := New(time.Second)
	p := newRecordingProcessor()
	p.results["b"] = []error{domain.Transient("details", 500, errors.New("server error"))}

	w := NewWorker(q, p, time.Millisecond, logger.Discard())
	w.Start()
	defer w.Stop()

	q.Enqueue([]string{"a", "b", "c"})

	waitFor(t, func() bool {
		s := q.Status()
		return s.Processed+s.Failed == 3
	})

	if fmt.Sprint(p.Calls()) != "[a b c]" {
		t.Errorf("calls = %v", p.Calls())
	}
	s := q.Status()
	if s.Processed != 2 || s.Failed != 1 {
		t.Errorf("processed=%d failed=%d, want 2 and 1", s.Processed, s.Failed)
	}
	if job, _ := q.Job("b"); job.Status != domain.QueryStatusError || job.Error == "" {
		t.Errorf("job b = %+v, want error with message", job)
	}
}

func TestWorkerHaltsOnFatalUntilResume(t *testing.T) {
	q := New(time.Second)
	p := newRecordingProcessor()
	p.results["a"] = []error{domain.Fatal("search", 403, errors.New("API key invalid"))}

	w := NewWorker(q, p, time.Millisecond, logger.Discard())
	w.Start()
	defer w.Stop()

	q.Enqueue([]string{"a", "b"})
	<-p.done

	waitFor(t, func() bool { return q.Halted() != nil })

	// no further jobs start while halted
	time.Sleep(20 * time.Millisecond)
	if calls := p.Calls(); len(calls) != 1 {
		t.Fatalf("Expected worker to stop after fatal error, calls = %v", calls)
	}
	if fmt.Sprint(q.Waiting()) != "[a b]" {
		t.Errorf("Waiting() = %v, want [a b]", q.Waiting())
	}

	q.Resume()
	waitFor(t, func() bool { return q.Status().Processed == 2 })

	if fmt.Sprint(p.Calls()) != "[a a b]" {
		t.Errorf("calls = %v, want [a a b]", p.Calls())
	}
}

func TestWorkerRecoversPanic(t *testing.T) {
	q := New(time.Second)
	p := newRecordingProcessor()
	p.results["a"] = []error{errors.New("panic")}

	w := NewWorker(q, p, time.Millisecond, logger.Discard())
	w.Start()
	defer w.Stop()

	q.Enqueue([]string{"a", "b"})

	waitFor(t, func() bool {
		s := q.Status()
		return s.Processed+s.Failed == 2
	})
	if job, _ := q.Job("a"); job.Status != domain.QueryStatusError {
		t.Errorf("panicking job status = %s, want error", job.Status)
	}
	if job, _ := q.Job("b"); job.Status != domain.QueryStatusComplete {
		t.Errorf("job after panic status = %s, want complete", job.Status)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	q := New(time.Second)
	w := NewWorker(q, ProcessorFunc(func(context.Context, string) error { return nil }), time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
