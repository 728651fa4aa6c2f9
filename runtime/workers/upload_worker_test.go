package workers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"vrc-uploader/domain"
	"vrc-uploader/domain/event"
	"vrc-uploader/infrastructure/webhook"
	"vrc-uploader/mocks"
	"vrc-uploader/repositories"
	"vrc-uploader/runtime"
)

type fixture struct {
	dataDir   string
	queue     *runtime.UploadQueue
	mailbox   *runtime.Mailbox
	responses *runtime.ResponseSlot
	state     *runtime.RunState
	history   *repositories.HistoryRepository
	counter   *repositories.CounterRepository
	canceled  *atomic.Bool
	transport *mocks.MockTransport
	worker    *UploadWorker
}

func newFixture(t *testing.T, ctrl *gomock.Controller) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	f := &fixture{
		dataDir:   dir,
		queue:     runtime.NewUploadQueue(),
		mailbox:   runtime.NewMailbox(),
		responses: runtime.NewResponseSlot(),
		state:     runtime.NewRunState(),
		history:   repositories.NewHistoryRepository(dir, logger),
		counter:   repositories.NewCounterRepository(dir, logger),
		canceled:  &atomic.Bool{},
		transport: mocks.NewMockTransport(ctrl),
	}
	f.worker = NewUploadWorker(
		logger, f.queue, f.mailbox, f.responses, f.state,
		f.history, f.counter, f.transport, f.canceled,
		Options{
			MaxFileSize:    domain.MaxFileSize,
			MaxRetries:     domain.MaxRetries,
			ConfirmTimeout: 50 * time.Millisecond,
			PacingDelay:    time.Millisecond,
		},
	)
	return f
}

// enqueueFile creates a real file on disk and queues it.
func (f *fixture) enqueueFile(t *testing.T, name string, size int) domain.UploadItem {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	item := domain.NewUploadItem(path)
	f.queue.Enqueue(item)
	return item
}

// statusOf extracts the last published status for an item.
func statusOf(t *testing.T, events []event.UIEvent, item domain.UploadItem) domain.ItemStatus {
	t.Helper()
	status := domain.StatusPending
	found := false
	for _, e := range events {
		if upd, ok := e.(event.ItemUpdated); ok && upd.ItemID == item.ID {
			status = upd.Status
			found = true
		}
	}
	require.True(t, found, "no ItemUpdated event for %s", item.Name)
	return status
}

func confirmRequests(events []event.UIEvent) []event.ConfirmRequest {
	var out []event.ConfirmRequest
	for _, e := range events {
		if req, ok := e.(event.ConfirmRequest); ok {
			out = append(out, req)
		}
	}
	return out
}

func TestUploadWorker_NoIdentifier(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	item := f.enqueueFile(t, "random_export.vrca", 16)
	f.state.SetTotal(1)

	// No transport expectation: any network call fails the test.
	req.NoError(f.worker.Run(context.Background()))

	events := f.mailbox.Drain()
	req.Equal(domain.StatusFailedNoID, statusOf(t, events, item))
	req.Equal(1, f.state.Done())
}

func TestUploadWorker_BulkDuplicateSkipsWithoutPrompt(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.history.Record("avtr_aaaa-1111", time.Now())

	dup := f.enqueueFile(t, "avtr_aaaa-1111.vrca", 16)
	other := f.enqueueFile(t, "avtr_bbbb-2222.vrca", 16)
	f.state.SetTotal(2) // bulk mode

	f.transport.EXPECT().Send(gomock.Any(), other.Path, other.Name, gomock.Any()).Return(nil)

	req.NoError(f.worker.Run(context.Background()))

	events := f.mailbox.Drain()
	req.Equal(domain.StatusSkippedDuplicate, statusOf(t, events, dup))
	req.Equal(domain.StatusSuccess, statusOf(t, events, other))
	req.Empty(confirmRequests(events))
}

func TestUploadWorker_SingleDuplicateConfirmation(t *testing.T) {
	cases := []struct {
		name    string
		answer  func(f *fixture)
		want    domain.ItemStatus
		uploads bool
	}{
		{
			name:   "declined",
			answer: func(f *fixture) { f.responses.Respond(false) },
			want:   domain.StatusSkippedDeclined,
		},
		{
			name:   "timed out",
			answer: func(f *fixture) {},
			want:   domain.StatusSkippedTimeout,
		},
		{
			name:    "accepted",
			answer:  func(f *fixture) { f.responses.Respond(true) },
			want:    domain.StatusSuccess,
			uploads: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(t, ctrl)
			f.history.Record("avtr_cccc-3333", time.Now())

			item := f.enqueueFile(t, "avtr_cccc-3333.unity3d", 16)
			f.state.SetTotal(1) // single-file mode

			if tc.uploads {
				f.transport.EXPECT().Send(gomock.Any(), item.Path, item.Name, gomock.Any()).Return(nil)
			}
			tc.answer(f)

			req.NoError(f.worker.Run(context.Background()))

			events := f.mailbox.Drain()
			req.Len(confirmRequests(events), 1)
			req.Equal(tc.want, statusOf(t, events, item))
		})
	}
}

func TestUploadWorker_TooLargeNeverTransmits(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	f.worker.opts.MaxFileSize = 8

	item := f.enqueueFile(t, "avtr_dddd-4444.vrcw", 64)
	f.state.SetTotal(1)

	req.NoError(f.worker.Run(context.Background()))
	req.Equal(domain.StatusFailedTooLarge, statusOf(t, f.mailbox.Drain(), item))
}

func TestUploadWorker_RateLimitRetriesThenSucceeds(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	item := f.enqueueFile(t, "avtr_eeee-5555.vrca", 16)
	f.state.SetTotal(1)

	rateLimited := &webhook.RateLimitError{RetryAfter: time.Millisecond}
	gomock.InOrder(
		f.transport.EXPECT().Send(gomock.Any(), item.Path, item.Name, gomock.Any()).Return(rateLimited),
		f.transport.EXPECT().Send(gomock.Any(), item.Path, item.Name, gomock.Any()).Return(rateLimited),
		f.transport.EXPECT().Send(gomock.Any(), item.Path, item.Name, gomock.Any()).Return(nil),
	)

	req.NoError(f.worker.Run(context.Background()))
	req.Equal(domain.StatusSuccess, statusOf(t, f.mailbox.Drain(), item))
}

func TestUploadWorker_RetryCapReached(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "rate limited forever", err: &webhook.RateLimitError{RetryAfter: time.Millisecond}},
		{name: "endpoint unreachable", err: &webhook.TransportError{Err: fmt.Errorf("connection refused")}},
		{name: "server error", err: &webhook.StatusError{Code: 500}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			f := newFixture(t, ctrl)
			item := f.enqueueFile(t, "avtr_ffff-6666.vrca", 16)
			f.state.SetTotal(1)

			f.transport.EXPECT().
				Send(gomock.Any(), item.Path, item.Name, gomock.Any()).
				Return(tc.err).
				Times(domain.MaxRetries)

			req.NoError(f.worker.Run(context.Background()))
			req.Equal(domain.StatusFailedNetwork, statusOf(t, f.mailbox.Drain(), item))
		})
	}
}

func TestUploadWorker_UnexpectedErrorIsTerminalImmediately(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	item := f.enqueueFile(t, "avtr_1111-7777.vrca", 16)
	f.state.SetTotal(1)

	f.transport.EXPECT().
		Send(gomock.Any(), item.Path, item.Name, gomock.Any()).
		Return(fmt.Errorf("disk on fire")).
		Times(1)

	req.NoError(f.worker.Run(context.Background()))
	req.Equal(domain.StatusFailedError, statusOf(t, f.mailbox.Drain(), item))
}

func TestUploadWorker_PanicInTransportMarksItemNotWorker(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	bad := f.enqueueFile(t, "avtr_2222-8888.vrca", 16)
	good := f.enqueueFile(t, "avtr_3333-9999.vrca", 16)
	f.state.SetTotal(2)

	f.transport.EXPECT().
		Send(gomock.Any(), bad.Path, bad.Name, gomock.Any()).
		DoAndReturn(func(context.Context, string, string, string) error {
			panic("poison item")
		})
	f.transport.EXPECT().Send(gomock.Any(), good.Path, good.Name, gomock.Any()).Return(nil)

	req.NoError(f.worker.Run(context.Background()))

	events := f.mailbox.Drain()
	req.Equal(domain.StatusFailedError, statusOf(t, events, bad))
	req.Equal(domain.StatusSuccess, statusOf(t, events, good))
}

func TestUploadWorker_SuccessSideEffects(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	item := f.enqueueFile(t, "avtr_4444-aaaa.prefab", 16)
	f.state.SetTotal(1)

	f.transport.EXPECT().
		Send(gomock.Any(), item.Path, item.Name, "New Avatar Uploaded!\n**VRChat URL:** https://vrchat.com/home/avatar/avtr_4444-aaaa").
		Return(nil)

	req.NoError(f.worker.Run(context.Background()))

	req.True(f.history.Contains("avtr_4444-aaaa"))
	req.Len(f.history.All()["avtr_4444-aaaa"], 1)
	req.Equal(1, f.counter.Count())
	req.NoFileExists(item.Path)

	// Both stores were persisted synchronously.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reloadedHistory := repositories.NewHistoryRepository(f.dataDir, logger)
	reloadedCounter := repositories.NewCounterRepository(f.dataDir, logger)
	reloadedHistory.Load()
	reloadedCounter.Load()
	req.True(reloadedHistory.Contains("avtr_4444-aaaa"))
	req.Equal(1, reloadedCounter.Count())
}

func TestUploadWorker_FinishEventsAndOrder(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	first := f.enqueueFile(t, "avtr_5555-bbbb.vrca", 16)
	second := f.enqueueFile(t, "avtr_6666-cccc.vrca", 16)
	f.state.SetTotal(2)

	gomock.InOrder(
		f.transport.EXPECT().Send(gomock.Any(), first.Path, first.Name, gomock.Any()).Return(nil),
		f.transport.EXPECT().Send(gomock.Any(), second.Path, second.Name, gomock.Any()).Return(nil),
	)

	req.NoError(f.worker.Run(context.Background()))

	events := f.mailbox.Drain()
	var finished []event.RunFinished
	for _, e := range events {
		if fin, ok := e.(event.RunFinished); ok {
			finished = append(finished, fin)
		}
	}
	req.Len(finished, 1)
	req.Equal(2, finished[0].Succeeded)
	req.Equal(2, finished[0].Processed)
}

func TestUploadWorker_CancellationStopsDraining(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t, ctrl)
	first := f.enqueueFile(t, "avtr_7777-dddd.vrca", 16)
	f.enqueueFile(t, "avtr_8888-eeee.vrca", 16)
	f.enqueueFile(t, "avtr_9999-ffff.vrca", 16)
	f.state.SetTotal(3)

	// The cancel lands while the first upload is in flight: the call is
	// allowed to finish, then the worker stops without touching the rest.
	f.transport.EXPECT().
		Send(gomock.Any(), first.Path, first.Name, gomock.Any()).
		DoAndReturn(func(context.Context, string, string, string) error {
			f.canceled.Store(true)
			f.queue.Clear()
			return nil
		})

	req.NoError(f.worker.Run(context.Background()))

	events := f.mailbox.Drain()
	req.Equal(domain.StatusSuccess, statusOf(t, events, first))
	for _, e := range events {
		_, isFinished := e.(event.RunFinished)
		req.False(isFinished, "canceled run must not emit RunFinished")
	}
	req.Equal(0, f.queue.Len())
}
