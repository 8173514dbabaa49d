package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

const namespace = "hostpulse"

// metrics mirrors the latest snapshot as Prometheus gauges on a private registry.
type metrics struct {
	registry *prometheus.Registry

	cpu       prometheus.Gauge
	ram       prometheus.Gauge
	disk      prometheus.Gauge
	battery   prometheus.Gauge
	info      *prometheus.GaugeVec
	snapshots prometheus.Counter
	lastSeen  prometheus.Gauge
}

func newMetrics() *metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &metrics{
		registry: prometheus.NewRegistry(),
		cpu:      gauge("cpu_usage_percent", "CPU utilisation over the last sample window."),
		ram:      gauge("ram_usage_percent", "Physical memory in use."),
		disk:     gauge("disk_usage_percent", "Used space on the sampled fixed volume."),
		battery:  gauge("battery_percent", "Battery charge; 100 when no battery is present."),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_info",
			Help:      "Descriptive host fields of the latest snapshot. Always 1.",
		}, []string{"network", "gpu", "system"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshots received by the HTTP view.",
		}),
		lastSeen: gauge("last_snapshot_timestamp_seconds", "Unix time of the latest snapshot."),
	}

	m.registry.MustRegister(
		m.cpu, m.ram, m.disk, m.battery, m.info, m.snapshots, m.lastSeen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(s diagnostics.SystemStats, unixSeconds float64) {
	m.cpu.Set(s.CPUUsagePercent)
	m.ram.Set(s.RAMUsagePercent)
	m.disk.Set(s.DiskUsagePercent)
	m.battery.Set(s.BatteryPercent)

	// Only the current label set is exported.
	m.info.Reset()
	m.info.WithLabelValues(s.NetworkInfo, s.GPUInfo, s.SystemInfo).Set(1)

	m.snapshots.Inc()
	m.lastSeen.Set(unixSeconds)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
