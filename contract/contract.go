//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"vrc-uploader/domain"
	"vrc-uploader/domain/event"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Supervise(ctx context.Context, worker Worker)
	Start(ctx context.Context, worker Worker)
	Wait()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Transport performs the single multipart webhook call for one file.
// Implementations must not mutate any state beyond the network request;
// interpreting the outcome belongs to the worker.
type Transport interface {
	Send(ctx context.Context, path, name, caption string) error
}

// EventSink consumes worker events on the presentation side.
type EventSink interface {
	Consume(ctx context.Context, e event.UIEvent) error
}

// IHistoryRepository is the durable avatar-id -> upload-timestamps mapping.
type IHistoryRepository interface {
	Load()
	Contains(id domain.AvatarID) bool
	Record(id domain.AvatarID, at time.Time)
	Save() error
	All() map[domain.AvatarID][]time.Time
}

// ICounterRepository is the durable total-successful-uploads scalar.
type ICounterRepository interface {
	Load()
	Count() int
	Increment()
	Save() error
}
