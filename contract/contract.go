//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"doorbell-lab/domain"
	"doorbell-lab/domain/event"
)

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

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

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Classifier asks the external vision service for annotations on a single
// image payload. Implementations must return a possibly-empty set, never nil
// annotations with a nil error.
type Classifier interface {
	Annotate(ctx context.Context, payload []byte) (domain.Annotations, error)
}

// Doorbell delivers exactly one notification per call, best effort.
type Doorbell interface {
	Ring(ctx context.Context, notification domain.NotificationEvent) error
}

// EventSink consumes pipeline events for side effects (journal, logs).
// Sinks must tolerate events they don't care about.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}
