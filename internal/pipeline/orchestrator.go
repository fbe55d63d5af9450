package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/config"
	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
)

// ErrDeleteUnsupported is returned by DeleteDocument when the backend
// cannot remove documents.
var ErrDeleteUnsupported = errors.New("document deletion not supported by backend")

// Orchestrator runs render jobs on a fixed pool of workers. Workers share
// one Renderer and therefore one client and rate limiter; each job renders
// its own document with its own cursor.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	renderer *docs.Renderer
	client   docs.Client
	history  Recorder
	log      *slog.Logger
	cfg      config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. client is the backend renderer
// writes to; if it can share documents, jobs with recipients are shared
// after rendering. hist may be nil.
func NewOrchestrator(cfg config.Config, renderer *docs.Renderer, client docs.Client, hist Recorder, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		renderer: renderer,
		client:   client,
		history:  hist,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.renderer, o.client, o.history, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail("queue_full", fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize))
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Renderer returns the renderer shared by the workers.
func (o *Orchestrator) Renderer() *docs.Renderer {
	return o.renderer
}

// DeleteDocument removes a rendered document from the backend.
func (o *Orchestrator) DeleteDocument(ctx context.Context, docID string) error {
	d, ok := o.client.(Deleter)
	if !ok {
		return ErrDeleteUnsupported
	}
	if err := d.Delete(ctx, docID); err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	o.log.Info("document deleted", "document_id", docID)
	return nil
}
