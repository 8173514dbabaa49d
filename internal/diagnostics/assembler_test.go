package diagnostics_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
	"github.com/HerbHall/hostpulse/internal/testutil"
)

func newAssembler(p diagnostics.Provider) *diagnostics.Assembler {
	return diagnostics.NewAssembler(p, zap.NewNop())
}

func TestCollect_HealthyProvider(t *testing.T) {
	a := newAssembler(testutil.NewFakeProvider())

	got := a.Collect(context.Background())

	assert.Equal(t, diagnostics.SystemStats{
		CPUUsagePercent:  12.5,
		RAMUsagePercent:  75,
		DiskUsagePercent: 75,
		BatteryPercent:   87,
		NetworkInfo:      "eth0 - IP: 192.168.1.100",
		GPUInfo:          "Intel Corporation TigerLake-LP GT2 [Iris Xe Graphics]",
		SystemInfo:       "LENOVO 20XW00A0US",
	}, got)
}

func TestCollect_CPUFailureIsIsolated(t *testing.T) {
	p := testutil.NewFakeProvider(func(p *testutil.FakeProvider) {
		p.CPUErr = diagnostics.NewProviderError(diagnostics.MetricCPU, diagnostics.ErrPermissionDenied, nil)
	})
	a := newAssembler(p)

	report := a.CollectReport(context.Background())

	assert.Zero(t, report.Stats.CPUUsagePercent)
	assert.Equal(t, 75.0, report.Stats.RAMUsagePercent)
	assert.Equal(t, 75.0, report.Stats.DiskUsagePercent)
	assert.Equal(t, 87.0, report.Stats.BatteryPercent)
	assert.Equal(t, "eth0 - IP: 192.168.1.100", report.Stats.NetworkInfo)
	assert.NoError(t, report.Failure)

	cpu, ok := report.Outcome(diagnostics.MetricCPU)
	require.True(t, ok)
	assert.True(t, cpu.Fallback)
	assert.ErrorIs(t, cpu.Err, diagnostics.ErrPermissionDenied)

	mem, ok := report.Outcome(diagnostics.MetricMemory)
	require.True(t, ok)
	assert.False(t, mem.Fallback)
}

func TestCollect_EveryProviderFails(t *testing.T) {
	a := newAssembler(testutil.NewFakeProvider(testutil.FailAll))

	report := a.CollectReport(context.Background())

	assert.Equal(t, diagnostics.SystemStats{
		CPUUsagePercent:  0,
		RAMUsagePercent:  0,
		DiskUsagePercent: 0,
		BatteryPercent:   0,
		NetworkInfo:      "No Active Adapter",
		GPUInfo:          "Unknown GPU",
		SystemInfo:       "Unknown System",
	}, report.Stats)
	assert.ErrorIs(t, report.Failure, diagnostics.ErrCollectionFailure)
}

func TestCollect_BatteryAbsentAndErrorBothReportFull(t *testing.T) {
	absent := newAssembler(testutil.NewFakeProvider(testutil.WithoutBattery))
	failing := newAssembler(testutil.NewFakeProvider(func(p *testutil.FakeProvider) {
		p.BatteryErr = diagnostics.NewProviderError(diagnostics.MetricBattery, diagnostics.ErrUnavailable, errors.New("upower not running"))
	}))

	absentReport := absent.CollectReport(context.Background())
	failingReport := failing.CollectReport(context.Background())

	assert.Equal(t, 100.0, absentReport.Stats.BatteryPercent)
	assert.Equal(t, 100.0, failingReport.Stats.BatteryPercent)

	// The report still tells the two paths apart.
	o, _ := absentReport.Outcome(diagnostics.MetricBattery)
	assert.False(t, o.Fallback)
	o, _ = failingReport.Outcome(diagnostics.MetricBattery)
	assert.True(t, o.Fallback)
	assert.ErrorIs(t, o.Err, diagnostics.ErrUnavailable)
}

func TestCollect_ZeroTotalsYieldZero(t *testing.T) {
	a := newAssembler(testutil.NewFakeProvider(func(p *testutil.FakeProvider) {
		p.Mem = diagnostics.Memory{TotalMB: 0, AvailableMB: 512}
		p.Vol = diagnostics.Disk{Mount: "/", TotalBytes: 0, FreeBytes: 0}
	}))

	got := a.Collect(context.Background())

	assert.Zero(t, got.RAMUsagePercent)
	assert.Zero(t, got.DiskUsagePercent)
	assert.False(t, math.IsNaN(got.RAMUsagePercent))
	assert.False(t, math.IsNaN(got.DiskUsagePercent))
}

func TestCollect_OutOfRangeValuesAreClamped(t *testing.T) {
	a := newAssembler(testutil.NewFakeProvider(func(p *testutil.FakeProvider) {
		p.CPUPercent = math.NaN()
		p.Bat = diagnostics.Battery{Present: true, Percent: 104}
	}))

	got := a.Collect(context.Background())

	assert.Zero(t, got.CPUUsagePercent)
	assert.Equal(t, 100.0, got.BatteryPercent)
}

func TestCollect_DescriptiveSentinels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*testutil.FakeProvider)
		check  func(t *testing.T, s diagnostics.SystemStats)
	}{
		{
			name: "no adapter",
			mutate: func(p *testutil.FakeProvider) {
				p.NetworkErr = diagnostics.NewProviderError(diagnostics.MetricNetwork, diagnostics.ErrNotFound, nil)
			},
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, diagnostics.NoActiveAdapter, s.NetworkInfo)
			},
		},
		{
			name: "adapter without address",
			mutate: func(p *testutil.FakeProvider) {
				p.Adapter = diagnostics.Adapter{Description: "wlan0"}
			},
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, diagnostics.NoActiveAdapter, s.NetworkInfo)
			},
		},
		{
			name: "adapter without description",
			mutate: func(p *testutil.FakeProvider) {
				p.Adapter = diagnostics.Adapter{Description: "  ", Addresses: []string{"192.168.1.100"}}
			},
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, diagnostics.NoActiveAdapter, s.NetworkInfo)
			},
		},
		{
			name:   "empty gpu name",
			mutate: func(p *testutil.FakeProvider) { p.GPUName = "  " },
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, diagnostics.UnknownGPU, s.GPUInfo)
			},
		},
		{
			name:   "empty identity",
			mutate: func(p *testutil.FakeProvider) { p.Ident = diagnostics.Identity{} },
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, diagnostics.UnknownSystem, s.SystemInfo)
			},
		},
		{
			name:   "model only",
			mutate: func(p *testutil.FakeProvider) { p.Ident = diagnostics.Identity{Model: "Standard PC (Q35 + ICH9, 2009)"} },
			check: func(t *testing.T, s diagnostics.SystemStats) {
				assert.Equal(t, "Standard PC (Q35 + ICH9, 2009)", s.SystemInfo)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAssembler(testutil.NewFakeProvider(tt.mutate))
			tt.check(t, a.Collect(context.Background()))
		})
	}
}

func TestCollect_NilProviderReturnsFallbackSnapshot(t *testing.T) {
	a := diagnostics.NewAssembler(nil, testutil.Logger())

	report := a.CollectReport(context.Background())

	assert.Equal(t, diagnostics.FallbackStats(), report.Stats)
	assert.ErrorIs(t, report.Failure, diagnostics.ErrCollectionFailure)
}

func TestCollect_Idempotent(t *testing.T) {
	p := testutil.NewFakeProvider()
	a := newAssembler(p)

	first := a.Collect(context.Background())
	second := a.Collect(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, 2, p.Calls(diagnostics.MetricMemory), "total memory is queried every cycle")
}
