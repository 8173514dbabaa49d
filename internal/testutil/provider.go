package testutil

import (
	"context"
	"sync"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Compile-time interface check.
var _ diagnostics.Provider = (*FakeProvider)(nil)

// FakeProvider is a diagnostics.Provider returning canned values. A non-nil
// error field makes the corresponding query fail.
type FakeProvider struct {
	mu sync.Mutex

	CPUPercent float64
	Mem        diagnostics.Memory
	Vol        diagnostics.Disk
	Bat        diagnostics.Battery
	Adapter    diagnostics.Adapter
	GPUName    string
	Ident      diagnostics.Identity

	CPUErr      error
	MemErr      error
	DiskErr     error
	BatteryErr  error
	NetworkErr  error
	GPUErr      error
	IdentityErr error

	calls map[string]int
}

// NewFakeProvider returns a FakeProvider describing a healthy laptop.
// Options are applied after the defaults.
func NewFakeProvider(opts ...func(*FakeProvider)) *FakeProvider {
	p := &FakeProvider{
		CPUPercent: 12.5,
		Mem:        diagnostics.Memory{TotalMB: 16000, AvailableMB: 4000},
		Vol:        diagnostics.Disk{Mount: "/", TotalBytes: 1_000_000_000, FreeBytes: 250_000_000},
		Bat:        diagnostics.Battery{Present: true, Percent: 87},
		Adapter:    diagnostics.Adapter{Description: "eth0", Addresses: []string{"192.168.1.100", "fe80::1"}},
		GPUName:    "Intel Corporation TigerLake-LP GT2 [Iris Xe Graphics]",
		Ident:      diagnostics.Identity{Manufacturer: "LENOVO", Model: "20XW00A0US"},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FailAll makes every query fail with an Unavailable provider error.
func FailAll(p *FakeProvider) {
	p.CPUErr = diagnostics.NewProviderError(diagnostics.MetricCPU, diagnostics.ErrUnavailable, nil)
	p.MemErr = diagnostics.NewProviderError(diagnostics.MetricMemory, diagnostics.ErrUnavailable, nil)
	p.DiskErr = diagnostics.NewProviderError(diagnostics.MetricDisk, diagnostics.ErrUnavailable, nil)
	p.BatteryErr = diagnostics.NewProviderError(diagnostics.MetricBattery, diagnostics.ErrUnavailable, nil)
	p.NetworkErr = diagnostics.NewProviderError(diagnostics.MetricNetwork, diagnostics.ErrUnavailable, nil)
	p.GPUErr = diagnostics.NewProviderError(diagnostics.MetricGPU, diagnostics.ErrUnavailable, nil)
	p.IdentityErr = diagnostics.NewProviderError(diagnostics.MetricIdentity, diagnostics.ErrUnavailable, nil)
}

// WithoutBattery describes a desktop with no battery installed.
func WithoutBattery(p *FakeProvider) {
	p.Bat = diagnostics.Battery{}
}

// Calls returns how many times the named metric was queried.
func (p *FakeProvider) Calls(metric string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[metric]
}

func (p *FakeProvider) record(metric string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[metric]++
}

func (p *FakeProvider) CPU(context.Context) (float64, error) {
	p.record(diagnostics.MetricCPU)
	return p.CPUPercent, p.CPUErr
}

func (p *FakeProvider) Memory(context.Context) (diagnostics.Memory, error) {
	p.record(diagnostics.MetricMemory)
	return p.Mem, p.MemErr
}

func (p *FakeProvider) Disk(context.Context) (diagnostics.Disk, error) {
	p.record(diagnostics.MetricDisk)
	return p.Vol, p.DiskErr
}

func (p *FakeProvider) Battery(context.Context) (diagnostics.Battery, error) {
	p.record(diagnostics.MetricBattery)
	return p.Bat, p.BatteryErr
}

func (p *FakeProvider) Network(context.Context) (diagnostics.Adapter, error) {
	p.record(diagnostics.MetricNetwork)
	return p.Adapter, p.NetworkErr
}

func (p *FakeProvider) GPU(context.Context) (string, error) {
	p.record(diagnostics.MetricGPU)
	return p.GPUName, p.GPUErr
}

func (p *FakeProvider) Identity(context.Context) (diagnostics.Identity, error) {
	p.record(diagnostics.MetricIdentity)
	return p.Ident, p.IdentityErr
}
