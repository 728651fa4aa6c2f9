package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"vrc-uploader/contract"
	"vrc-uploader/domain"
	"vrc-uploader/domain/event"
)

// addRequest is the validated shape of one enqueue call.
type addRequest struct {
	Path string `validate:"required,max=1024"`
}

// Orchestrator owns the run lifecycle: it accepts file paths from the
// presentation side, feeds the queue, and makes sure exactly one upload
// worker is alive at a time. Cancellation flows through one shared flag plus
// an atomic queue clear.
type Orchestrator struct {
	mu        sync.Mutex
	log       *slog.Logger
	validator *validator.Validate

	queue     *UploadQueue
	mailbox   *Mailbox
	responses *ResponseSlot
	state     *RunState

	supervisor contract.ISupervisor
	worker     contract.Worker

	canceled *atomic.Bool
	running  atomic.Bool

	// seen holds every path currently rendered in the view, queued or
	// resolved, so the same file cannot be enqueued twice before a reset.
	seen map[string]struct{}
}

func NewOrchestrator(
	log *slog.Logger,
	queue *UploadQueue,
	mailbox *Mailbox,
	responses *ResponseSlot,
	state *RunState,
	supervisor contract.ISupervisor,
	canceled *atomic.Bool,
) *Orchestrator {
	return &Orchestrator{
		log:        log,
		validator:  validator.New(),
		queue:      queue,
		mailbox:    mailbox,
		responses:  responses,
		state:      state,
		supervisor: supervisor,
		canceled:   canceled,
		seen:       make(map[string]struct{}),
	}
}

// SetWorker installs the worker the orchestrator starts for each run.
// Must be called once during wiring, before AddFiles.
func (o *Orchestrator) SetWorker(w contract.Worker) {
	o.worker = w
}

// AddFiles accepts a batch of paths into the queue and returns how many were
// actually added. Unsupported extensions, duplicates of live rows, invalid
// and unreadable paths are dropped. When at least one file was added and no
// worker is alive, a new run starts.
func (o *Orchestrator) AddFiles(ctx context.Context, paths []string) int {
	o.mu.Lock()

	accepted := lo.Filter(paths, func(path string, _ int) bool {
		return o.acceptPath(path)
	})

	items := lo.Map(accepted, func(path string, _ int) domain.UploadItem {
		return domain.NewUploadItem(path)
	})

	for _, item := range items {
		o.mailbox.Publish(event.ItemAdded{Item: item})
		o.queue.Enqueue(item)
	}

	snapshot := o.queue.Len()
	o.state.SetTotal(snapshot)
	o.mailbox.Publish(event.Progress{Done: o.state.Done(), Total: snapshot})
	o.mailbox.Publish(event.StatusText{
		Message: fmt.Sprintf("Added %d files to the queue.", len(items)),
		Level:   event.SeverityDefault,
	})

	o.mu.Unlock()

	if len(items) > 0 {
		o.startWorkerIfIdle(ctx)
	}
	return len(items)
}

// acceptPath applies the enqueue-time gates. Caller holds o.mu.
func (o *Orchestrator) acceptPath(path string) bool {
	if err := o.validator.Struct(addRequest{Path: path}); err != nil {
		o.log.Warn("rejecting invalid path", "path", path, "error", err)
		return false
	}
	if !domain.AcceptedFile(path) {
		o.log.Debug("rejecting unsupported extension", "path", path)
		return false
	}
	if _, dup := o.seen[path]; dup {
		o.log.Debug("path already queued", "path", path)
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		o.log.Warn("rejecting unreadable path", "path", path, "error", err)
		return false
	}

	// Reserve the row now so a repeat of the same path later in this batch
	// is dropped too.
	o.seen[path] = struct{}{}
	return true
}

// startWorkerIfIdle spawns the single background worker unless one is
// already draining the queue. Adding files during a run only enqueues.
func (o *Orchestrator) startWorkerIfIdle(ctx context.Context) {
	if o.worker == nil {
		o.log.Error("no worker installed, cannot start run")
		return
	}
	if !o.running.CompareAndSwap(false, true) {
		return
	}

	o.canceled.Store(false)
	o.log.Info("starting upload run", "pending", o.queue.Len())

	go func() {
		defer o.running.Store(false)
		o.supervisor.Supervise(ctx, o.worker)
	}()
}

// Cancel stops the current run: the shared flag stops further dequeues, the
// remaining queue is cleared, and the view resets. Durable stores keep every
// success already recorded.
func (o *Orchestrator) Cancel() {
	if !o.running.Load() {
		o.log.Info("no active upload to cancel")
		return
	}

	o.canceled.Store(true)
	o.queue.Clear()

	o.mu.Lock()
	o.seen = make(map[string]struct{})
	o.state.Reset()
	o.mu.Unlock()

	o.mailbox.Publish(event.ViewReset{Reason: "Uploads canceled."})
	o.log.Info("upload run canceled")
}

// Respond forwards the user's duplicate-confirmation answer to the worker.
func (o *Orchestrator) Respond(answer bool) {
	o.responses.Respond(answer)
}

// Running reports whether a worker is currently draining the queue.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}
