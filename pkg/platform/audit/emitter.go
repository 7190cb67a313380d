package audit

import (
	"context"
	"time"
)

// StoreEmitter writes events straight to the backing store. With the Postgres
// outbox store this gives at-least-once delivery to Kafka via the relay
// worker; with the memory store it keeps tests and demo runs self-contained.
type StoreEmitter struct {
	store Store
}

func NewStoreEmitter(store Store) *StoreEmitter {
	return &StoreEmitter{store: store}
}

func (e *StoreEmitter) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return e.store.Append(ctx, event)
}
