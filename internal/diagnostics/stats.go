// Package diagnostics samples host telemetry through a Provider and assembles
// it into SystemStats snapshots, optionally on a fixed refresh interval.
package diagnostics

import "math"

// Sentinel strings substituted when a descriptive metric cannot be measured.
const (
	NoActiveAdapter = "No Active Adapter"
	UnknownGPU      = "Unknown GPU"
	UnknownSystem   = "Unknown System"
)

// NoBatteryPercent is reported when no battery is present or it cannot be read.
const NoBatteryPercent = 100

// SystemStats is one fully populated snapshot of host telemetry.
// It holds only value fields, so copies never share memory.
type SystemStats struct {
	CPUUsagePercent  float64 `json:"cpu_usage_percent" yaml:"cpu_usage_percent"`
	RAMUsagePercent  float64 `json:"ram_usage_percent" yaml:"ram_usage_percent"`
	DiskUsagePercent float64 `json:"disk_usage_percent" yaml:"disk_usage_percent"`
	BatteryPercent   float64 `json:"battery_percent" yaml:"battery_percent"`
	NetworkInfo      string  `json:"network_info" yaml:"network_info"`
	GPUInfo          string  `json:"gpu_info" yaml:"gpu_info"`
	SystemInfo       string  `json:"system_info" yaml:"system_info"`
}

// FallbackStats returns the snapshot used when collection fails as a whole.
func FallbackStats() SystemStats {
	return SystemStats{
		NetworkInfo: NoActiveAdapter,
		GPUInfo:     UnknownGPU,
		SystemInfo:  UnknownSystem,
	}
}

// MemoryUsagePercent returns the share of memory in use. A zero total yields 0.
func MemoryUsagePercent(totalMB, availableMB float64) float64 {
	if totalMB <= 0 {
		return 0
	}
	return clampPercent((totalMB - availableMB) / totalMB * 100)
}

// DiskUsagePercent returns the share of a volume in use. A zero total yields 0.
func DiskUsagePercent(totalBytes, freeBytes uint64) float64 {
	if totalBytes == 0 {
		return 0
	}
	return clampPercent(100 - float64(freeBytes)/float64(totalBytes)*100)
}

// clampPercent maps v into [0,100]; NaN becomes 0.
func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
