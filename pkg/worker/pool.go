// Package worker runs fire-and-forget side effects (notifications,
// shipping updates, low-stock alerts) on a bounded queue, decoupled
// from the synchronous saga outcome. Each task gets its own bounded
// retry; tasks that exhaust the budget are dead-letter logged, never
// silently dropped and never propagated into the submitting operation.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/acmecommerce/orderflow/pkg/retry"
)

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pool struct {
	log     *slog.Logger
	tasks   chan Task
	policy  retry.Policy
	workers int

	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewPool(log *slog.Logger, workers, queueSize int, policy retry.Policy) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		log:     log,
		tasks:   make(chan Task, queueSize),
		policy:  policy,
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run(ctx)
		}
	})
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			if err := retry.Do(ctx, p.policy, task.Run); err != nil {
				p.log.Error("task dead-lettered", "task", task.Name, "attempts", p.policy.Attempts, "err", err)
				continue
			}
			p.log.Debug("task done", "task", task.Name)
		}
	}
}

// Submit enqueues a task without blocking. A full queue counts as a
// dead-letter: the drop is logged and false is returned.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		p.log.Error("task queue full, dropped", "task", task.Name)
		return false
	}
}

// Close stops intake and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
