//go:build !linux

package probe

import (
	"context"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Battery, GPU and identity inventory are read from sysfs and lspci, which
// only exist on Linux. Elsewhere these queries report Unavailable and the
// snapshot carries its sentinels.

func (h *Host) Battery(context.Context) (diagnostics.Battery, error) {
	return diagnostics.Battery{}, diagnostics.NewProviderError(diagnostics.MetricBattery, diagnostics.ErrUnavailable, nil)
}

func (h *Host) GPU(context.Context) (string, error) {
	return "", diagnostics.NewProviderError(diagnostics.MetricGPU, diagnostics.ErrUnavailable, nil)
}

func (h *Host) Identity(context.Context) (diagnostics.Identity, error) {
	return diagnostics.Identity{}, diagnostics.NewProviderError(diagnostics.MetricIdentity, diagnostics.ErrUnavailable, nil)
}

func (h *Host) isRemovable(string) bool { return false }

func (h *Host) adapterKind(name string) string { return classifyNICType(name, "") }

func (h *Host) describeAdapter(name string) string { return name }

func isNoDevice(error) bool { return false }
