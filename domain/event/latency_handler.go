package event

import (
	"log/slog"
	"time"
)

type LatencyHandler struct {
	log              *slog.Logger
	latencyThreshold time.Duration
}

func NewLatencyHandler(log *slog.Logger, latencyThreshold time.Duration) *LatencyHandler {
	return &LatencyHandler{log: log, latencyThreshold: latencyThreshold}
}

func (h *LatencyHandler) Handle(d Delivered) {
	leadTime := d.LeadTime()
	h.log.Debug("telemetry: delivery latency",
		"room", d.RoomID,
		"message", d.MessageID,
		"translated", d.Translated,
		"lead_time_ms", leadTime.Milliseconds(),
	)

	if leadTime > h.latencyThreshold {
		h.log.Warn("high latency detected",
			"room", d.RoomID, "translated", d.Translated, "lead_time", leadTime)
	}
}
