package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var (
	meter             = otel.Meter("catalog.perf_stats")
	cpuGauge, _       = meter.Float64Gauge("cpu_usage")
	rssGauge, _       = meter.Int64Gauge("rss_mb")
	allocatedGauge, _ = meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ = meter.Int64Gauge("goroutine_count")
)

// PerfStats is a single sample of the resource usage of the running process.
type PerfStats struct {
	CpuPercent  float64
	RssMb       int64
	AllocatedMb int64
	Goroutines  int64
}

// SamplePerfStats reads the current resource usage, cpu usage is measured over
// the given window.
func SamplePerfStats(ctx context.Context, window time.Duration) (PerfStats, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats := PerfStats{
		AllocatedMb: int64(memStats.Alloc / 1_000_000),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	usage, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return stats, err
	}
	if len(usage) > 0 {
		stats.CpuPercent = usage[0]
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return stats, err
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.RssMb = int64(mem.RSS / 1_000_000)
	return stats, nil
}

// InstrumentPerfStats records the resource usage of the process every interval
// until ctx is done, scraping runs last long enough for this to matter.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := SamplePerfStats(ctx, time.Second)
				if err != nil {
					slog.Debug("failed to sample perf stats", "err", err)
				}
				cpuGauge.Record(ctx, stats.CpuPercent)
				rssGauge.Record(ctx, stats.RssMb)
				allocatedGauge.Record(ctx, stats.AllocatedMb)
				goroutineGauge.Record(ctx, stats.Goroutines)
			case <-ctx.Done():
				return
			}
		}
	}()
}
