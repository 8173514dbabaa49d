package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// ErrCollectionFailure marks a collection that failed outside every
// per-metric guard and was replaced by FallbackStats.
var ErrCollectionFailure = errors.New("collection failure")

// Collector produces snapshots. Assembler is the production implementation.
type Collector interface {
	Collect(ctx context.Context) SystemStats
}

// Outcome records how one metric was obtained during a collection.
type Outcome struct {
	Metric   string
	Fallback bool
	Err      error
}

// Report is a snapshot plus the per-metric detail that SystemStats hides.
type Report struct {
	Stats    SystemStats
	Outcomes []Outcome
	// Failure is set when the catch-all fired; it wraps ErrCollectionFailure.
	Failure error
}

// Outcome returns the outcome recorded for metric.
func (r Report) Outcome(metric string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Metric == metric {
			return o, true
		}
	}
	return Outcome{}, false
}

// Assembler builds SystemStats from a Provider. It keeps no state between calls.
type Assembler struct {
	provider Provider
	logger   *zap.Logger
}

// Compile-time guard.
var _ Collector = (*Assembler)(nil)

// NewAssembler creates an Assembler over provider.
func NewAssembler(provider Provider, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{provider: provider, logger: logger}
}

// Collect returns a fully populated snapshot. It never fails: unavailable
// metrics carry their sentinel values.
func (a *Assembler) Collect(ctx context.Context) SystemStats {
	return a.CollectReport(ctx).Stats
}

// CollectReport is Collect with per-metric outcomes attached.
func (a *Assembler) CollectReport(ctx context.Context) (report Report) {
	defer func() {
		if v := recover(); v != nil {
			report = Report{
				Stats:   FallbackStats(),
				Failure: fmt.Errorf("%w: %v", ErrCollectionFailure, v),
			}
			a.logger.Error("snapshot collection failed, returning fallback snapshot",
				zap.Any("panic", v),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	cpu := Sample(ctx, a.logger, MetricCPU, a.provider.CPU, 0)
	mem := Sample(ctx, a.logger, MetricMemory, a.provider.Memory, Memory{})
	disk := Sample(ctx, a.logger, MetricDisk, a.provider.Disk, Disk{})
	battery := Sample(ctx, a.logger, MetricBattery, a.provider.Battery, Battery{})
	adapter := Sample(ctx, a.logger, MetricNetwork, a.provider.Network, Adapter{})
	gpu := Sample(ctx, a.logger, MetricGPU, a.provider.GPU, "")
	identity := Sample(ctx, a.logger, MetricIdentity, a.provider.Identity, Identity{})

	report.Stats = SystemStats{
		CPUUsagePercent:  clampPercent(cpu.Value),
		RAMUsagePercent:  MemoryUsagePercent(mem.Value.TotalMB, mem.Value.AvailableMB),
		DiskUsagePercent: DiskUsagePercent(disk.Value.TotalBytes, disk.Value.FreeBytes),
		BatteryPercent:   batteryPercent(battery.Value),
		NetworkInfo:      networkInfo(adapter.Value),
		GPUInfo:          orSentinel(gpu.Value, UnknownGPU),
		SystemInfo:       systemInfo(identity.Value),
	}
	report.Outcomes = []Outcome{
		outcome(MetricCPU, cpu),
		outcome(MetricMemory, mem),
		outcome(MetricDisk, disk),
		outcome(MetricBattery, battery),
		outcome(MetricNetwork, adapter),
		outcome(MetricGPU, gpu),
		outcome(MetricIdentity, identity),
	}

	// With no provider answering at all the query mechanism itself is down;
	// report that as a collection failure rather than a set of sentinels.
	if allFailed(report.Outcomes) {
		a.logger.Warn("every metric provider failed, returning fallback snapshot")
		report.Stats = FallbackStats()
		report.Failure = fmt.Errorf("%w: every provider failed", ErrCollectionFailure)
	}
	return report
}

func allFailed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err == nil {
			return false
		}
	}
	return len(outcomes) > 0
}

func outcome[T any](metric string, r Result[T]) Outcome {
	return Outcome{Metric: metric, Fallback: r.Fallback, Err: r.Err}
}

// batteryPercent maps a missing battery to NoBatteryPercent. A failed query
// arrives here as the zero Battery, so it maps the same way.
func batteryPercent(b Battery) float64 {
	if !b.Present {
		return NoBatteryPercent
	}
	return clampPercent(b.Percent)
}

func networkInfo(a Adapter) string {
	if strings.TrimSpace(a.Description) == "" || len(a.Addresses) == 0 {
		return NoActiveAdapter
	}
	return a.String()
}

func systemInfo(id Identity) string {
	return orSentinel(strings.TrimSpace(id.Manufacturer+" "+id.Model), UnknownSystem)
}

func orSentinel(s, sentinel string) string {
	if strings.TrimSpace(s) == "" {
		return sentinel
	}
	return s
}
