package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tndg16-bot/ai-writing-automation/internal/docs"
	"github.com/tndg16-bot/ai-writing-automation/internal/history"
)

// Sharer is implemented by document backends that can grant access to a
// rendered document.
type Sharer interface {
	Share(ctx context.Context, docID, email, role string, notify bool) error
}

// Finalizer is implemented by backends that must flush a rendered
// document before its URL is usable.
type Finalizer interface {
	Finalize(ctx context.Context, docID string) error
}

// Deleter is implemented by backends that can remove a document.
type Deleter interface {
	Delete(ctx context.Context, docID string) error
}

// Recorder persists render outcomes.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Worker processes a single render job.
type Worker struct {
	renderer  *docs.Renderer
	sharer    Sharer
	finalizer Finalizer
	history   Recorder
	log       *slog.Logger
}

// NewWorker creates a worker for documents written through client. hist
// may be nil.
func NewWorker(renderer *docs.Renderer, client docs.Client, hist Recorder, log *slog.Logger) *Worker {
	sharer, _ := client.(Sharer)
	finalizer, _ := client.(Finalizer)
	return &Worker{
		renderer:  renderer,
		sharer:    sharer,
		finalizer: finalizer,
		history:   hist,
		log:       log,
	}
}

// Process renders the job's document and records the outcome.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "template", job.Template)

	job.SetStatus(StatusRendering, "rendering")
	w.record(ctx, log, job, nil)
	log.Info("render started")

	res, err := w.renderer.Render(ctx, job.Context(), job.Template)
	if err != nil {
		log.Error("render failed", "error", err)
		job.Fail("rendering", err)
		w.record(ctx, log, job, err)
		return
	}

	if w.finalizer != nil {
		if err := w.finalizer.Finalize(ctx, res.DocumentID); err != nil {
			log.Error("finalize failed", "document_id", res.DocumentID, "error", err)
			job.Fail("saving", err)
			w.record(ctx, log, job, err)
			return
		}
	}

	if len(job.ShareWith) > 0 {
		job.SetStatus(StatusRendering, "sharing")
		w.share(ctx, log, job, res.DocumentID)
	}

	job.Complete(res)
	w.record(ctx, log, job, nil)
	log.Info("render complete", "document_id", res.DocumentID, "url", res.URL, "duration_ms", res.Duration.Milliseconds())
}

// share grants writer access to every address on the job. Failures are
// kept on the job as warnings; the document itself already exists.
func (w *Worker) share(ctx context.Context, log *slog.Logger, job *Job, docID string) {
	if w.sharer == nil {
		log.Warn("backend cannot share documents", "recipients", len(job.ShareWith))
		job.AddError("sharing not supported by backend")
		return
	}
	for _, email := range job.ShareWith {
		if err := w.sharer.Share(ctx, docID, email, "writer", false); err != nil {
			log.Warn("share failed", "email", email, "error", err)
			job.AddError(fmt.Sprintf("share %s: %s", email, err))
		}
	}
}

func (w *Worker) record(ctx context.Context, log *slog.Logger, job *Job, renderErr error) {
	if w.history == nil {
		return
	}
	snap := job.Snapshot()
	e := history.Entry{
		ID:         snap.ID,
		Template:   snap.Template,
		Title:      snap.Title,
		DocumentID: snap.DocumentID,
		URL:        snap.URL,
		Status:     string(snap.Status),
		DurationMs: snap.DurationMs,
		CreatedAt:  snap.CreatedAt,
	}
	if renderErr != nil {
		e.Error = renderErr.Error()
	}
	// History must survive a canceled render.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.history.Record(rctx, e); err != nil {
		log.Warn("history write failed", "error", err)
	}
}
