package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vrc-uploader/contract"
	"vrc-uploader/errors"
)

const waitTimeBeforeRestart = 200 * time.Millisecond

// Supervisor runs a worker under a panic net. If the worker's Run method
// panics, the supervisor recovers and restarts it after a short delay, so a
// failure inside one item can never silently kill background processing of
// the rest of the queue. A nil return from Run means the worker finished its
// job and must not be restarted.
type Supervisor struct {
	wg  sync.WaitGroup
	log *slog.Logger
}

func NewSupervisor(log *slog.Logger) *Supervisor {
	return &Supervisor{log: log}
}

// Supervise blocks until the worker finishes or the context ends.
func (s *Supervisor) Supervise(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	defer s.wg.Done()

	workerName := contract.GetWorkerName(worker)

	for {
		if ctx.Err() != nil {
			s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
			return
		}

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.ErrWorkerPanic
				}
			}()
			return worker.Run(ctx)
		}()

		if err == nil {
			// Terminated properly, never restart !
			s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
			return
		}

		if ctx.Err() != nil {
			s.log.Info("Worker stopped (context canceled)", "name", workerName)
			return
		}

		s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
		select {
		case <-ctx.Done():
			// Context canceled: priority stop.
			return
		case <-time.After(waitTimeBeforeRestart):
			// Delay elapsed and context is still active.
		}
	}
}

// Start runs Supervise in its own goroutine.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	go s.Supervise(ctx, worker)
}

// Wait blocks until every supervised worker has exited.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}
