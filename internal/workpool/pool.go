// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workpool runs submitted calls on a bounded set of workers with a
// per-call deadline. A call that outlives its deadline returns to the caller
// immediately while the worker finishes in the background; after too many
// consecutive timeouts the pool is torn down and rebuilt so blocked workers
// cannot accumulate forever.
package workpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/indicator-engine/internal/faults"
)

// Defaults applied by New for unset options.
const (
	DefaultWorkers             = 4
	DefaultCallTimeout         = 30 * time.Second
	DefaultMaxConsecutiveStall = 3
)

// Options configures a Pool.
type Options struct {
	Workers             int
	CallTimeout         time.Duration
	MaxConsecutiveStall int
	Logger              *zap.Logger
}

// Task is one unit of work. It must honour ctx cancellation promptly; a
// task that ignores ctx occupies its worker until it returns.
type Task func(ctx context.Context) (any, error)

type job struct {
	ctx  context.Context
	task Task
	done chan result
}

type result struct {
	value any
	err   error
}

// generation is one incarnation of the worker set. Recreation closes quit,
// which releases idle workers and unblocks pending submitters; the jobs
// channel itself is never closed, so late senders cannot panic.
type generation struct {
	id   int
	jobs chan job
	quit chan struct{}
}

// Pool dispatches tasks to a fixed number of workers.
type Pool struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	gen    *generation
	stalls int
	closed bool
}

// New builds and starts a Pool.
func New(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxConsecutiveStall <= 0 {
		opts.MaxConsecutiveStall = DefaultMaxConsecutiveStall
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Pool{opts: opts, log: opts.Logger}
	p.gen = p.startGeneration(0)
	return p
}

func (p *Pool) startGeneration(id int) *generation {
	g := &generation{id: id, jobs: make(chan job), quit: make(chan struct{})}
	for i := 0; i < p.opts.Workers; i++ {
		go func() {
			for {
				select {
				case <-g.quit:
					return
				case j := <-g.jobs:
					value, err := j.task(j.ctx)
					j.done <- result{value: value, err: err}
				}
			}
		}()
	}
	return g
}

// Close stops accepting work and releases idle workers. Workers busy with
// an abandoned call exit when that call returns.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.gen.quit)
	}
}

// Run submits a task and waits for its result, at most CallTimeout. On
// timeout the call returns a transient fault; the worker keeps draining the
// abandoned task in the background.
func (p *Pool) Run(ctx context.Context, task Task) (any, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, faults.Permanent(nil, "worker pool is closed")
	}
	g := p.gen
	p.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	// Buffered so an abandoned worker can still deliver and move on.
	j := job{ctx: callCtx, task: task, done: make(chan result, 1)}

	select {
	case g.jobs <- j:
	case <-g.quit:
		return nil, faults.Transient(nil, "worker pool was recreated under load")
	case <-callCtx.Done():
		p.noteStall(g.id)
		return nil, faults.Transient(callCtx.Err(), "worker pool saturated")
	}

	select {
	case res := <-j.done:
		p.noteCompletion()
		return res.value, res.err
	case <-callCtx.Done():
		p.noteStall(g.id)
		return nil, faults.Transient(callCtx.Err(), "call exceeded %s deadline", p.opts.CallTimeout)
	}
}

func (p *Pool) noteCompletion() {
	p.mu.Lock()
	p.stalls = 0
	p.mu.Unlock()
}

// noteStall counts consecutive timeouts and recreates the worker set once
// the cap is hit. The generation id keeps stalls observed against an
// already replaced generation from triggering another recreation.
func (p *Pool) noteStall(genID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || genID != p.gen.id {
		return
	}
	p.stalls++
	if p.stalls < p.opts.MaxConsecutiveStall {
		return
	}

	p.log.Warn("recreating worker pool after consecutive timeouts",
		zap.Int("timeouts", p.stalls), zap.Int("workers", p.opts.Workers))
	close(p.gen.quit)
	p.gen = p.startGeneration(p.gen.id + 1)
	p.stalls = 0
}
