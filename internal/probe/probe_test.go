package probe

import (
	"context"
	"errors"
	"io/fs"
	"strconv"
	"testing"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	psnet "github.com/shirou/gopsutil/v4/net"
	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

func TestBusyPercent(t *testing.T) {
	tests := []struct {
		name string
		prev cpu.TimesStat
		cur  cpu.TimesStat
		want float64
	}{
		{
			name: "quarter busy",
			prev: cpu.TimesStat{User: 100, System: 50, Idle: 850},
			cur:  cpu.TimesStat{User: 120, System: 55, Idle: 925},
			want: 25,
		},
		{
			name: "iowait counts as idle",
			prev: cpu.TimesStat{},
			cur:  cpu.TimesStat{User: 50, Idle: 30, Iowait: 20},
			want: 50,
		},
		{
			name: "fully busy",
			prev: cpu.TimesStat{User: 10, Idle: 10},
			cur:  cpu.TimesStat{User: 20, Idle: 10},
			want: 100,
		},
		{
			name: "no elapsed time",
			prev: cpu.TimesStat{User: 10, Idle: 10},
			cur:  cpu.TimesStat{User: 10, Idle: 10},
			want: 0,
		},
		{
			name: "counter reset",
			prev: cpu.TimesStat{User: 1000, Idle: 1000},
			cur:  cpu.TimesStat{User: 5, Idle: 5},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := busyPercent(tt.prev, tt.cur); got != tt.want {
				t.Errorf("busyPercent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectFixedPartition(t *testing.T) {
	removable := func(device string) bool { return device == "/dev/sdb1" }

	tests := []struct {
		name      string
		parts     []disk.PartitionStat
		wantMount string
		wantOK    bool
	}{
		{
			name: "first fixed volume wins",
			parts: []disk.PartitionStat{
				{Device: "/dev/nvme0n1p2", Mountpoint: "/"},
				{Device: "/dev/nvme0n1p1", Mountpoint: "/boot/efi"},
			},
			wantMount: "/",
			wantOK:    true,
		},
		{
			name: "skips removable, loop and optical",
			parts: []disk.PartitionStat{
				{Device: "/dev/loop3", Mountpoint: "/snap/core/1"},
				{Device: "/dev/sr0", Mountpoint: "/media/cdrom"},
				{Device: "/dev/sdb1", Mountpoint: "/media/usb"},
				{Device: "/dev/sda2", Mountpoint: "/data"},
			},
			wantMount: "/data",
			wantOK:    true,
		},
		{
			name: "skips non-device sources",
			parts: []disk.PartitionStat{
				{Device: "overlay", Mountpoint: "/"},
				{Device: "tmpfs", Mountpoint: "/run"},
			},
			wantOK: false,
		},
		{
			name: "windows drive letter",
			parts: []disk.PartitionStat{
				{Device: "C:", Mountpoint: "C:"},
			},
			wantMount: "C:",
			wantOK:    true,
		},
		{
			name:   "nothing enumerated",
			parts:  nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectFixedPartition(tt.parts, removable)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Mountpoint != tt.wantMount {
				t.Errorf("Mountpoint = %q, want %q", got.Mountpoint, tt.wantMount)
			}
		})
	}
}

func TestParentBlockDevice(t *testing.T) {
	tests := map[string]string{
		"sda1":      "sda",
		"sda":       "sda",
		"vdb12":     "vdb",
		"nvme0n1p2": "nvme0n1",
		"nvme0n1":   "nvme0n1",
		"mmcblk0p1": "mmcblk0",
		"mmcblk0":   "mmcblk0",
	}
	for in, want := range tests {
		if got := parentBlockDevice(in); got != want {
			t.Errorf("parentBlockDevice(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSelectAdapter(t *testing.T) {
	addrs := func(a ...string) psnet.InterfaceAddrList {
		out := make(psnet.InterfaceAddrList, 0, len(a))
		for _, s := range a {
			out = append(out, psnet.InterfaceAddr{Addr: s})
		}
		return out
	}
	kind := func(name string) string { return classifyNICType(name, "1") }

	tests := []struct {
		name     string
		ifaces   []psnet.InterfaceStat
		wantName string
		wantOK   bool
	}{
		{
			name: "skips loopback and down adapters",
			ifaces: []psnet.InterfaceStat{
				{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: addrs("127.0.0.1/8")},
				{Name: "eth1", Flags: []string{"broadcast"}, Addrs: addrs("10.0.0.2/24")},
				{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: addrs("192.168.1.10/24")},
			},
			wantName: "eth0",
			wantOK:   true,
		},
		{
			name: "skips adapters without addresses",
			ifaces: []psnet.InterfaceStat{
				{Name: "eno1", Flags: []string{"up"}},
				{Name: "wlp3s0", Flags: []string{"up"}, Addrs: addrs("10.1.1.4/16")},
			},
			wantName: "wlp3s0",
			wantOK:   true,
		},
		{
			name: "prefers physical over virtual",
			ifaces: []psnet.InterfaceStat{
				{Name: "docker0", Flags: []string{"up"}, Addrs: addrs("172.17.0.1/16")},
				{Name: "eth0", Flags: []string{"up"}, Addrs: addrs("192.168.1.10/24")},
			},
			wantName: "eth0",
			wantOK:   true,
		},
		{
			name: "falls back to virtual",
			ifaces: []psnet.InterfaceStat{
				{Name: "veth12ab", Flags: []string{"up"}, Addrs: addrs("172.18.0.2/16")},
			},
			wantName: "veth12ab",
			wantOK:   true,
		},
		{
			name: "nothing usable",
			ifaces: []psnet.InterfaceStat{
				{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: addrs("::1/128")},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectAdapter(tt.ifaces, kind)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", got.Name, tt.wantName)
			}
		})
	}
}

func TestStripPrefixLen(t *testing.T) {
	tests := map[string]string{
		"192.168.1.10/24":  "192.168.1.10",
		"fe80::1c2a/64":    "fe80::1c2a",
		"10.0.0.1":         "10.0.0.1",
		"not-an-address/x": "not-an-address/x",
	}
	for in, want := range tests {
		if got := stripPrefixLen(in); got != want {
			t.Errorf("stripPrefixLen(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifyNICType(t *testing.T) {
	tests := []struct {
		name       string
		ifName     string
		kernelType string
		wantType   string
	}{
		{name: "wifi wl prefix", ifName: "wlp3s0", kernelType: "1", wantType: "wifi"},
		{name: "wifi wlan prefix", ifName: "wlan0", kernelType: "1", wantType: "wifi"},
		{name: "virtual veth", ifName: "veth123abc", kernelType: "1", wantType: "virtual"},
		{name: "virtual docker", ifName: "docker0", kernelType: "1", wantType: "virtual"},
		{name: "virtual bridge", ifName: "br-abc123", kernelType: "1", wantType: "virtual"},
		{name: "virtual wireguard", ifName: "wg0", kernelType: "65534", wantType: "virtual"},
		{name: "ethernet", ifName: "eth0", kernelType: "1", wantType: "ethernet"},
		{name: "ethernet eno", ifName: "eno1", kernelType: "1", wantType: "ethernet"},
		{name: "wifi kernel type", ifName: "ath0", kernelType: "801", wantType: "wifi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNICType(tt.ifName, tt.kernelType)
			if got != tt.wantType {
				t.Errorf("classifyNICType(%q, %q): got %q, want %q", tt.ifName, tt.kernelType, got, tt.wantType)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	_, parseErr := strconv.ParseFloat("n/a", 64)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "permission", err: &fs.PathError{Op: "open", Path: "/sys/x", Err: fs.ErrPermission}, want: diagnostics.ErrPermissionDenied},
		{name: "missing file", err: &fs.PathError{Op: "open", Path: "/sys/x", Err: fs.ErrNotExist}, want: diagnostics.ErrNotFound},
		{name: "parse", err: parseErr, want: diagnostics.ErrParseFailure},
		{name: "other", err: errors.New("boom"), want: diagnostics.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(diagnostics.MetricBattery, tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classify(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) does not wrap the cause", tt.err)
			}
		})
	}
}

func TestClassify_KeepsProviderError(t *testing.T) {
	pe := diagnostics.NewProviderError(diagnostics.MetricCPU, diagnostics.ErrParseFailure, nil)
	if got := classify(diagnostics.MetricCPU, pe); got != error(pe) {
		t.Errorf("classify re-wrapped an existing ProviderError: %v", got)
	}
}

func TestHost_CloseReseedsCPUBaseline(t *testing.T) {
	h := New(context.Background(), zap.NewNop())
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := h.CPU(context.Background())
	if err != nil {
		t.Skipf("cpu times unavailable: %v", err)
	}
	if got != 0 {
		t.Errorf("first CPU after Close = %v, want 0 (baseline only)", got)
	}

	h.mu.Lock()
	seeded := h.prevCPU != nil && !h.reseed
	h.mu.Unlock()
	if !seeded {
		t.Error("first CPU after Close should record a new baseline")
	}

	got, err = h.CPU(context.Background())
	if err != nil {
		t.Fatalf("second CPU: %v", err)
	}
	if got < 0 || got > 100 {
		t.Errorf("second CPU after Close = %v, want within [0,100]", got)
	}
}

func TestHost_LiveQueriesNeverPanic(t *testing.T) {
	h := New(context.Background(), zap.NewNop())
	defer h.Close()

	a := diagnostics.NewAssembler(h, zap.NewNop())
	s := a.Collect(context.Background())

	for name, v := range map[string]float64{
		"cpu":     s.CPUUsagePercent,
		"ram":     s.RAMUsagePercent,
		"disk":    s.DiskUsagePercent,
		"battery": s.BatteryPercent,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s percent out of range [0,100]: %v", name, v)
		}
	}
	if s.NetworkInfo == "" || s.GPUInfo == "" || s.SystemInfo == "" {
		t.Errorf("descriptive fields must never be empty: %+v", s)
	}
}
