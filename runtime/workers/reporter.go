package workers

import (
	"context"
	"log/slog"
	"os"
	"polychat/domain"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ReporterWorker logs the room statistics and the process footprint at a fixed interval.
type ReporterWorker struct {
	log        *slog.Logger
	stats      func() domain.Stats
	deliveries func() (delivered, translated int64)
	interval   time.Duration
}

func NewReporterWorker(log *slog.Logger, stats func() domain.Stats, interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, stats: stats, interval: interval}
}

// WithDeliveries adds the running delivery totals to each report.
func (w *ReporterWorker) WithDeliveries(deliveries func() (delivered, translated int64)) *ReporterWorker {
	w.deliveries = deliveries
	return w
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			w.report(p, startTime)
			return nil
		case <-ticker.C:
			w.report(p, startTime)
		}
	}
}

func (w *ReporterWorker) report(p *process.Process, startTime time.Time) {
	stats := w.stats()
	attrs := []any{
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"rooms", stats.TotalRooms,
		"active_rooms", stats.ActiveRooms,
		"users", stats.TotalUsers,
	}
	if w.deliveries != nil {
		delivered, translated := w.deliveries()
		attrs = append(attrs, "delivered", delivered, "translated", translated)
	}
	if mem, err := p.MemoryInfo(); err == nil {
		attrs = append(attrs, "rss_mb", mem.RSS/1024/1024)
	}
	if cpu, err := p.CPUPercent(); err == nil {
		attrs = append(attrs, "cpu_percent", cpu)
	}
	w.log.Info("Chat statistics", attrs...)
}
