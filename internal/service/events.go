package service

import (
	"context"
	"errors"

	"github.com/manishmaharjan/reservation-system/internal/queue"
)

// EventSink receives reservation events after the change has committed.
type EventSink interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Sinks fans an event out to several sinks. Every sink is tried; the
// failures are joined.
type Sinks []EventSink

func (s Sinks) Publish(ctx context.Context, ev queue.ReservationEvent) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
