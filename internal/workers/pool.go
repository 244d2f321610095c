// Package workers provides a bounded worker pool with panic recovery, used
// to run user strategy initialization off the event dispatcher goroutine.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of work to be processed.
type Task interface {
	Execute() error
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// PoolConfig configures a Pool.
type PoolConfig struct {
	Name            string
	NumWorkers      int
	QueueSize       int
	TaskTimeout     time.Duration
	ShutdownTimeout time.Duration
	PanicRecovery   bool
}

// SingleWorkerConfig is the configuration used for the strategy init pool:
// one worker, so user on_init bodies run serially and never stall the
// dispatcher.
func SingleWorkerConfig(name string) *PoolConfig {
	return &PoolConfig{
		Name:            name,
		NumWorkers:      1,
		QueueSize:       64,
		TaskTimeout:     time.Minute,
		ShutdownTimeout: 10 * time.Second,
		PanicRecovery:   true,
	}
}

// PoolStats is a point-in-time snapshot of pool activity.
type PoolStats struct {
	TasksSubmitted int64 `json:"tasks_submitted"`
	TasksCompleted int64 `json:"tasks_completed"`
	TasksFailed    int64 `json:"tasks_failed"`
	PanicRecovered int64 `json:"panic_recovered"`
}

// Pool manages a fixed set of worker goroutines pulling from a bounded queue.
type Pool struct {
	logger *zap.Logger
	config *PoolConfig

	taskQueue chan Task
	wg        sync.WaitGroup

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panics    atomic.Int64
}

// NewPool constructs a Pool; call Start to launch the workers.
func NewPool(logger *zap.Logger, config *PoolConfig) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config == nil {
		config = SingleWorkerConfig("default")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		logger:    logger.Named("workers").With(zap.String("pool", config.Name)),
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers. Idempotent.
func (p *Pool) Start() {
	if p.running.Swap(true) {
		return
	}
	p.logger.Info("starting worker pool",
		zap.Int("workers", p.config.NumWorkers),
		zap.Int("queue_size", p.config.QueueSize))

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.run(i)
	}
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	logger := p.logger.With(zap.Int("worker_id", id))
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.execute(logger, task)
		}
	}
}

func (p *Pool) execute(logger *zap.Logger, task Task) {
	done := make(chan error, 1)
	go func() {
		if p.config.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					p.panics.Add(1)
					logger.Error("worker recovered from panic", zap.Any("panic", r))
					done <- fmt.Errorf("task panic: %v", r)
				}
			}()
		}
		done <- task.Execute()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(p.config.TaskTimeout):
		err = fmt.Errorf("task timed out after %s", p.config.TaskTimeout)
	case <-p.ctx.Done():
		return
	}

	if err != nil {
		p.failed.Add(1)
		logger.Warn("task failed", zap.Error(err))
	} else {
		p.completed.Add(1)
	}
}

// Submit enqueues task, returning an error when the pool is stopped or the
// queue is full.
func (p *Pool) Submit(task Task) error {
	if !p.running.Load() {
		return fmt.Errorf("pool %s is not running", p.config.Name)
	}
	select {
	case p.taskQueue <- task:
		p.submitted.Add(1)
		return nil
	default:
		return fmt.Errorf("pool %s queue is full", p.config.Name)
	}
}

// SubmitFunc enqueues a plain function.
func (p *Pool) SubmitFunc(fn func() error) error {
	return p.Submit(TaskFunc(fn))
}

// Stop drains in-flight work and joins the workers, bounded by
// ShutdownTimeout. Idempotent.
func (p *Pool) Stop() error {
	if !p.running.Swap(false) {
		return nil
	}
	close(p.taskQueue)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.config.ShutdownTimeout):
		p.cancel()
		<-done
	}
	p.cancel()
	p.logger.Info("worker pool stopped", zap.Int64("completed", p.completed.Load()))
	return nil
}

// IsRunning reports whether the pool accepts work.
func (p *Pool) IsRunning() bool { return p.running.Load() }

// Stats returns current counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		TasksSubmitted: p.submitted.Load(),
		TasksCompleted: p.completed.Load(),
		TasksFailed:    p.failed.Load(),
		PanicRecovered: p.panics.Load(),
	}
}
