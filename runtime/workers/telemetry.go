package workers

import (
	"context"
	"log/slog"
	"polychat/domain/event"
)

// TelemetryWorker hands every delivery trace to each handler, in order.
type TelemetryWorker struct {
	log           *slog.Logger
	telemetryChan <-chan event.Delivered
	handlers      []event.Handler
}

func NewTelemetryWorker(log *slog.Logger,
	telemetryChan <-chan event.Delivered,
	handlers []event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:           log,
		telemetryChan: telemetryChan,
		handlers:      handlers,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-w.telemetryChan:
			if !ok {
				return nil
			}
			w.handle(d)
		}
	}
}

func (w *TelemetryWorker) handle(d event.Delivered) {
	for _, h := range w.handlers {
		h.Handle(d)
	}
}
