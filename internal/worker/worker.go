package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of periodic background work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often tasks are run
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of tasks running at once
	MaxConcurrency int

	// TaskTimeout bounds a single task run
	TaskTimeout time.Duration
}

// Worker runs background tasks on a ticker
type Worker struct {
	config Config
	tasks  []Task
	logger *slog.Logger

	running sync.Map // task name -> struct{}
	wg      sync.WaitGroup
}

// NewWorker creates a new background worker
func NewWorker(config Config, logger *slog.Logger, tasks ...Task) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Minute
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 2
	}
	if config.TaskTimeout == 0 {
		config.TaskTimeout = 30 * time.Second
	}

	return &Worker{
		config: config,
		tasks:  tasks,
		logger: logger,
	}
}

// Start runs every task once per poll interval until ctx is cancelled.
// It waits for in-flight tasks before returning.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
		"tasks", len(w.tasks),
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.config.MaxConcurrency)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.wg.Wait()
			return ctx.Err()

		case <-ticker.C:
			for _, task := range w.tasks {
				// A task still running from the previous tick is skipped.
				if _, busy := w.running.LoadOrStore(task.Name(), struct{}{}); busy {
					continue
				}

				select {
				case sem <- struct{}{}:
					w.wg.Add(1)
					go func(t Task) {
						defer w.wg.Done()
						defer func() { <-sem }()
						defer w.running.Delete(t.Name())
						w.runTask(ctx, t)
					}(task)
				default:
					// At max concurrency, skip this poll
					w.running.Delete(task.Name())
				}
			}
		}
	}
}

// RunOnce runs every task sequentially, outside the ticker.
func (w *Worker) RunOnce(ctx context.Context) {
	for _, task := range w.tasks {
		w.runTask(ctx, task)
	}
}

func (w *Worker) runTask(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("task panicked",
				"worker_id", w.config.WorkerID,
				"task", task.Name(),
				"panic", rec,
			)
		}
	}()

	start := time.Now()
	if err := task.Run(taskCtx); err != nil {
		w.logger.Error("task failed",
			"worker_id", w.config.WorkerID,
			"task", task.Name(),
			"error", err,
		)
		return
	}

	w.logger.Debug("task completed",
		"task", task.Name(),
		"duration", time.Since(start),
	)
}
