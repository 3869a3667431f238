// Package worker is the in-process job queue behind gateway dispatch and
// notification delivery. Jobs run outside any request scope; anything that
// needs exactly-once ledger effect must carry its own idempotent reference.
package worker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arvestapp/arvest-backend/internal/metrics"
)

type task func()

type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(job)
			}
		}()
	}
	return p
}

func (p *Pool) run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker job panic", "err", rec)
		}
		metrics.WorkerQueueDepth.Dec()
	}()
	job()
}

func (p *Pool) Submit(f task) {
	metrics.WorkerQueueDepth.Inc()
	p.jobs <- f
}

// SubmitRetry runs f up to attempts times with doubling backoff, stopping
// on the first nil return. Duplicate side effects across attempts are the
// job's problem; callers pass idempotent references for exactly that
// reason.
func (p *Pool) SubmitRetry(name string, attempts int, backoff time.Duration, f func() error) {
	p.Submit(func() {
		delay := backoff
		for i := 1; ; i++ {
			err := f()
			if err == nil {
				return
			}
			if i >= attempts {
				slog.Error("job exhausted retries", "job", name, "attempts", attempts, "err", err)
				return
			}
			slog.Warn("job retrying", "job", name, "attempt", i, "err", err)
			time.Sleep(delay)
			delay *= 2
		}
	})
}

func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }
