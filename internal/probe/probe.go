// Package probe answers diagnostics.Provider queries against the local host
// using gopsutil for counters and sysfs or lspci for hardware inventory.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// DefaultSysfsRoot is where sysfs is mounted on Linux.
const DefaultSysfsRoot = "/sys"

// commandRunner runs an external command and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Host is the production diagnostics.Provider. It owns the CPU counter
// baseline used to turn cumulative CPU times into utilisation; the baseline
// is taken by New and released by Close.
type Host struct {
	logger    *zap.Logger
	sysRoot   string
	diskMount string
	run       commandRunner

	mu      sync.Mutex
	prevCPU *cpu.TimesStat
	reseed  bool
}

// Compile-time guard.
var _ diagnostics.Provider = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithDiskMount pins the disk query to one mount point instead of picking the
// first fixed volume.
func WithDiskMount(mount string) Option {
	return func(h *Host) { h.diskMount = mount }
}

// WithSysfsRoot reads hardware inventory below root instead of /sys.
func WithSysfsRoot(root string) Option {
	return func(h *Host) { h.sysRoot = root }
}

func withCommandRunner(run commandRunner) Option {
	return func(h *Host) { h.run = run }
}

// New creates a Host and takes the initial CPU baseline. A failed baseline is
// not fatal: the first CPU query then reports utilisation since boot.
func New(ctx context.Context, logger *zap.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Host{
		logger:  logger,
		sysRoot: DefaultSysfsRoot,
		run:     execCommand,
	}
	for _, opt := range opts {
		opt(h)
	}

	if t, err := totalCPUTimes(ctx); err != nil {
		h.logger.Warn("initial cpu baseline unavailable", zap.Error(err))
	} else {
		h.prevCPU = &t
	}
	return h
}

// Close releases the CPU baseline. The Host stays usable: the next CPU query
// only records a new baseline and reports 0, and later queries measure
// from there.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prevCPU = nil
	h.reseed = true
	return nil
}

// CPU returns utilisation since the previous CPU query (or since New).
func (h *Host) CPU(ctx context.Context) (float64, error) {
	cur, err := totalCPUTimes(ctx)
	if err != nil {
		return 0, classify(diagnostics.MetricCPU, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.reseed {
		h.reseed = false
		h.prevCPU = &cur
		return 0, nil
	}
	prev := cpu.TimesStat{}
	if h.prevCPU != nil {
		prev = *h.prevCPU
	}
	h.prevCPU = &cur
	return busyPercent(prev, cur), nil
}

func totalCPUTimes(ctx context.Context) (cpu.TimesStat, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return cpu.TimesStat{}, err
	}
	if len(times) == 0 {
		return cpu.TimesStat{}, diagnostics.NewProviderError(diagnostics.MetricCPU, diagnostics.ErrParseFailure, errors.New("no aggregate cpu times"))
	}
	return times[0], nil
}

// busyPercent computes utilisation between two cumulative samples. Guest
// time is already counted in User on Linux and is not added again.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	total := func(t cpu.TimesStat) float64 {
		return t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	}
	idle := func(t cpu.TimesStat) float64 { return t.Idle + t.Iowait }

	dTotal := total(cur) - total(prev)
	if dTotal <= 0 {
		return 0
	}
	dBusy := dTotal - (idle(cur) - idle(prev))
	return min(max(dBusy/dTotal*100, 0), 100)
}

// Memory returns total and available physical memory from one query.
func (h *Host) Memory(ctx context.Context) (diagnostics.Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return diagnostics.Memory{}, classify(diagnostics.MetricMemory, err)
	}
	const mb = 1024 * 1024
	return diagnostics.Memory{
		TotalMB:     float64(vm.Total) / mb,
		AvailableMB: float64(vm.Available) / mb,
	}, nil
}

// Disk returns the capacity of the pinned mount, or of the first fixed,
// non-removable volume.
func (h *Host) Disk(ctx context.Context) (diagnostics.Disk, error) {
	mount := h.diskMount
	if mount == "" {
		parts, err := disk.PartitionsWithContext(ctx, false)
		if err != nil {
			return diagnostics.Disk{}, classify(diagnostics.MetricDisk, err)
		}
		part, ok := selectFixedPartition(parts, h.isRemovable)
		if !ok {
			return diagnostics.Disk{}, diagnostics.NewProviderError(diagnostics.MetricDisk, diagnostics.ErrNotFound, nil)
		}
		mount = part.Mountpoint
	}

	usage, err := disk.UsageWithContext(ctx, mount)
	if err != nil {
		return diagnostics.Disk{}, classify(diagnostics.MetricDisk, fmt.Errorf("usage of %s: %w", mount, err))
	}
	return diagnostics.Disk{Mount: mount, TotalBytes: usage.Total, FreeBytes: usage.Free}, nil
}

// selectFixedPartition returns the first enumerated partition backed by a
// physical, non-removable block device.
func selectFixedPartition(parts []disk.PartitionStat, removable func(device string) bool) (disk.PartitionStat, bool) {
	for _, p := range parts {
		if !strings.HasPrefix(p.Device, "/dev/") && !isDriveLetter(p.Device) {
			continue
		}
		name := strings.TrimPrefix(p.Device, "/dev/")
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "sr") {
			continue
		}
		if removable(p.Device) {
			continue
		}
		return p, true
	}
	return disk.PartitionStat{}, false
}

func isDriveLetter(device string) bool {
	return len(device) == 2 && device[1] == ':'
}

// parentBlockDevice maps a partition name to its disk: sda1 -> sda,
// nvme0n1p2 -> nvme0n1, mmcblk0p1 -> mmcblk0.
func parentBlockDevice(name string) string {
	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if i := strings.LastIndex(name, "p"); i > 0 && i < len(name)-1 {
			if _, err := strconv.Atoi(name[i+1:]); err == nil {
				return name[:i]
			}
		}
		return name
	}
	return strings.TrimRightFunc(name, func(r rune) bool { return r >= '0' && r <= '9' })
}

// Network returns the first active adapter with at least one address.
func (h *Host) Network(ctx context.Context) (diagnostics.Adapter, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return diagnostics.Adapter{}, classify(diagnostics.MetricNetwork, err)
	}
	iface, ok := selectAdapter(ifaces, h.adapterKind)
	if !ok {
		return diagnostics.Adapter{}, diagnostics.NewProviderError(diagnostics.MetricNetwork, diagnostics.ErrNotFound, nil)
	}

	addrs := make([]string, 0, len(iface.Addrs))
	for _, a := range iface.Addrs {
		addrs = append(addrs, stripPrefixLen(a.Addr))
	}
	return diagnostics.Adapter{
		Description: h.describeAdapter(iface.Name),
		Addresses:   addrs,
	}, nil
}

// selectAdapter picks the first up, non-loopback interface with an address,
// preferring physical adapters over virtual ones.
func selectAdapter(ifaces []psnet.InterfaceStat, kind func(name string) string) (psnet.InterfaceStat, bool) {
	var virtual *psnet.InterfaceStat
	for i := range ifaces {
		iface := ifaces[i]
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") || len(iface.Addrs) == 0 {
			continue
		}
		if kind(iface.Name) == nicVirtual {
			if virtual == nil {
				virtual = &ifaces[i]
			}
			continue
		}
		return iface, true
	}
	if virtual != nil {
		return *virtual, true
	}
	return psnet.InterfaceStat{}, false
}

// stripPrefixLen turns "192.168.1.10/24" into "192.168.1.10".
func stripPrefixLen(addr string) string {
	if p, err := netip.ParsePrefix(addr); err == nil {
		return p.Addr().String()
	}
	return addr
}

// Network adapter kinds.
const (
	nicEthernet = "ethernet"
	nicWifi     = "wifi"
	nicVirtual  = "virtual"
)

// classifyNICType guesses an adapter kind from its name and, on Linux, the
// ARPHRD type from /sys/class/net/<if>/type (801 is IEEE 802.11).
func classifyNICType(ifName, kernelType string) string {
	switch {
	case kernelType == "801", strings.HasPrefix(ifName, "wl"):
		return nicWifi
	case strings.HasPrefix(ifName, "veth"),
		strings.HasPrefix(ifName, "docker"),
		strings.HasPrefix(ifName, "br-"),
		strings.HasPrefix(ifName, "virbr"),
		strings.HasPrefix(ifName, "tun"),
		strings.HasPrefix(ifName, "tap"),
		strings.HasPrefix(ifName, "wg"),
		strings.HasPrefix(ifName, "tailscale"),
		strings.HasPrefix(ifName, "utun"):
		return nicVirtual
	}
	return nicEthernet
}

// classify wraps err as a ProviderError, choosing the kind from its cause.
func classify(metric string, err error) error {
	var pe *diagnostics.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	kind := diagnostics.ErrUnavailable
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = diagnostics.ErrPermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, diagnostics.ErrNotFound), isNoDevice(err):
		kind = diagnostics.ErrNotFound
	case errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange):
		kind = diagnostics.ErrParseFailure
	}
	return diagnostics.NewProviderError(metric, kind, err)
}
