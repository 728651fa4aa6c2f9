package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"vrc-uploader/contract"
	"vrc-uploader/domain"
	"vrc-uploader/domain/event"
	apperrors "vrc-uploader/errors"
	"vrc-uploader/infrastructure/webhook"
	"vrc-uploader/runtime"
)

// Options bounds the worker's gating and pacing. Defaults match the original
// utility; tests inject tiny durations.
type Options struct {
	MaxFileSize    int64
	MaxRetries     int
	ConfirmTimeout time.Duration
	PacingDelay    time.Duration
}

// UploadWorker drains the upload queue one item at a time: extract the avatar
// id, apply duplicate/size gating, transmit with bounded rate-limit retries,
// persist history and counter on success, and report every state transition
// through the mailbox. Exactly one instance runs at a time.
type UploadWorker struct {
	log       *slog.Logger
	queue     *runtime.UploadQueue
	mailbox   *runtime.Mailbox
	responses *runtime.ResponseSlot
	state     *runtime.RunState
	history   contract.IHistoryRepository
	counter   contract.ICounterRepository
	transport contract.Transport
	canceled  *atomic.Bool
	opts      Options
}

func NewUploadWorker(
	log *slog.Logger,
	queue *runtime.UploadQueue,
	mailbox *runtime.Mailbox,
	responses *runtime.ResponseSlot,
	state *runtime.RunState,
	history contract.IHistoryRepository,
	counter contract.ICounterRepository,
	transport contract.Transport,
	canceled *atomic.Bool,
	opts Options,
) *UploadWorker {
	return &UploadWorker{
		log:       log,
		queue:     queue,
		mailbox:   mailbox,
		responses: responses,
		state:     state,
		history:   history,
		counter:   counter,
		transport: transport,
		canceled:  canceled,
		opts:      opts,
	}
}

// Run drains the queue until it is empty or the run is canceled. Items are
// processed strictly in enqueue order; a fixed pacing delay separates them so
// the endpoint is never hammered. Returns nil once the queue is exhausted.
func (w *UploadWorker) Run(ctx context.Context) error {
	w.mailbox.Publish(event.Spinner{Active: true})
	defer w.mailbox.Publish(event.Spinner{Active: false})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if w.canceled.Load() {
			return nil
		}

		item, ok := w.queue.TryDequeue()
		if !ok {
			break
		}

		w.process(ctx, item)

		if w.canceled.Load() {
			return nil
		}
		w.pause(ctx, w.opts.PacingDelay)
	}

	w.mailbox.Publish(event.RunFinished{
		Succeeded: w.state.Succeeded(),
		Processed: w.state.Done(),
	})
	w.mailbox.Publish(event.StatusText{Message: "All uploads completed.", Level: event.SeveritySuccess})
	return nil
}

// process resolves one item to a terminal status and publishes the outcome.
// Cancellation mid-item leaves the item unmarked, matching the queue being
// cleared underneath it.
func (w *UploadWorker) process(ctx context.Context, item domain.UploadItem) {
	w.publishItem(item, domain.StatusUploading, 0, "")
	w.mailbox.Publish(event.CurrentFile{Name: item.Name})

	status, detail, resolved := w.resolve(ctx, item)
	if !resolved {
		return
	}

	progress := 0
	if status == domain.StatusSuccess {
		progress = 100
	}
	w.publishItem(item, status, progress, detail)

	done, total := w.state.IncrementDone()
	w.mailbox.Publish(event.Progress{Done: done, Total: total})
}

// resolve applies the gates in order: identifier, duplicate policy, size,
// then transmission. The third return is false when cancellation interrupted
// the item before it reached a terminal state.
func (w *UploadWorker) resolve(ctx context.Context, item domain.UploadItem) (domain.ItemStatus, string, bool) {
	id, ok := domain.ExtractAvatarID(item.Name)
	if !ok {
		w.log.Warn("no avatar identifier in filename", "file", item.Name)
		return domain.StatusFailedNoID, "", true
	}

	if w.history.Contains(id) {
		if w.state.Bulk() {
			return domain.StatusSkippedDuplicate, "", true
		}

		w.mailbox.Publish(event.ConfirmRequest{
			ItemID:   item.ID,
			Question: fmt.Sprintf("Avatar '%s' was uploaded before. Upload again?", item.Name),
		})
		answer, err := w.responses.Await(ctx, w.opts.ConfirmTimeout)
		switch {
		case errors.Is(err, apperrors.ErrConfirmTimeout):
			return domain.StatusSkippedTimeout, "", true
		case err != nil:
			return 0, "", false
		case !answer:
			return domain.StatusSkippedDeclined, "", true
		}
	}

	return w.transmit(ctx, item, id)
}

// transmit performs the size gate and the bounded retry loop. Rate-limit
// responses honor the advertised wait and consume an attempt; transport and
// status errors retry after the pacing delay; anything else is terminal
// immediately because retrying an unknown failure risks repeated side effects.
func (w *UploadWorker) transmit(ctx context.Context, item domain.UploadItem, id domain.AvatarID) (domain.ItemStatus, string, bool) {
	info, err := os.Stat(item.Path)
	if err != nil {
		w.log.Error("cannot stat queued file", "path", item.Path, "error", err)
		return domain.StatusFailedError, "", true
	}
	if info.Size() > w.opts.MaxFileSize {
		return domain.StatusFailedTooLarge, "", true
	}

	caption := fmt.Sprintf("New Avatar Uploaded!\n**VRChat URL:** %s", id.URL())

	for attempt := 1; attempt <= w.opts.MaxRetries; attempt++ {
		if w.canceled.Load() || ctx.Err() != nil {
			return 0, "", false
		}

		err := w.attempt(ctx, item, caption)

		var rateLimited *webhook.RateLimitError
		var statusErr *webhook.StatusError
		var transportErr *webhook.TransportError

		switch {
		case err == nil:
			w.recordSuccess(item, id)
			return domain.StatusSuccess, fmt.Sprintf("(%s)", time.Now().Format("15:04:05")), true

		case errors.As(err, &rateLimited):
			w.mailbox.Publish(event.StatusText{
				Message: fmt.Sprintf("Rate limit hit. Retrying in %s...", rateLimited.RetryAfter),
				Level:   event.SeverityWarning,
			})
			w.log.Warn("rate limited", "file", item.Name, "attempt", attempt, "retry_after", rateLimited.RetryAfter)
			w.pause(ctx, rateLimited.RetryAfter)

		case errors.As(err, &statusErr), errors.As(err, &transportErr):
			w.log.Warn("upload attempt failed", "file", item.Name, "attempt", attempt, "error", err)
			if attempt == w.opts.MaxRetries {
				return domain.StatusFailedNetwork, "", true
			}
			w.pause(ctx, w.opts.PacingDelay)

		default:
			w.log.Error("upload failed with unexpected error", "file", item.Name, "error", err)
			return domain.StatusFailedError, "", true
		}
	}

	return domain.StatusFailedNetwork, "", true
}

// attempt runs one transport call, converting a panic into an error so a
// single poisoned item can never kill the drain loop.
func (w *UploadWorker) attempt(ctx context.Context, item domain.UploadItem, caption string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrWorkerPanic, r)
		}
	}()
	return w.transport.Send(ctx, item.Path, item.Name, caption)
}

// recordSuccess applies the success side effects in the documented order:
// history first, then the best-effort local delete, then the counter. Store
// failures are logged and swallowed; the run continues on in-memory state.
func (w *UploadWorker) recordSuccess(item domain.UploadItem, id domain.AvatarID) {
	w.history.Record(id, time.Now())
	if err := w.history.Save(); err != nil {
		w.log.Error("saving upload history", "error", err)
	}

	if err := os.Remove(item.Path); err != nil {
		w.log.Warn("could not delete uploaded file", "path", item.Path, "error", err)
	}

	w.counter.Increment()
	if err := w.counter.Save(); err != nil {
		w.log.Error("saving upload count", "error", err)
	}

	w.state.IncrementSucceeded()
}

func (w *UploadWorker) publishItem(item domain.UploadItem, status domain.ItemStatus, progress int, detail string) {
	w.mailbox.Publish(event.ItemUpdated{
		ItemID:   item.ID,
		Status:   status,
		Progress: progress,
		Detail:   detail,
	})
}

// pause sleeps unless the context ends first.
func (w *UploadWorker) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
