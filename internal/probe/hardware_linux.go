//go:build linux

package probe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Battery reads the first system battery under /sys/class/power_supply.
// Machines without one report Present=false and no error.
func (h *Host) Battery(_ context.Context) (diagnostics.Battery, error) {
	dir := filepath.Join(h.sysRoot, "class", "power_supply")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return diagnostics.Battery{}, classify(diagnostics.MetricBattery, err)
	}

	for _, e := range entries {
		supply := filepath.Join(dir, e.Name())
		if readSysfs(supply, "type") != "Battery" {
			continue
		}
		// Wireless mice and keyboards report scope=Device.
		if readSysfs(supply, "scope") == "Device" {
			continue
		}
		pct, err := batteryCapacity(supply)
		if err != nil {
			return diagnostics.Battery{}, classify(diagnostics.MetricBattery, fmt.Errorf("%s: %w", e.Name(), err))
		}
		return diagnostics.Battery{Present: true, Percent: pct}, nil
	}
	return diagnostics.Battery{}, nil
}

// batteryCapacity prefers the kernel's capacity attribute and falls back to
// energy_now/energy_full or charge_now/charge_full.
func batteryCapacity(supply string) (float64, error) {
	if raw, err := os.ReadFile(filepath.Join(supply, "capacity")); err == nil {
		return strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, err
	}

	for _, pair := range [][2]string{{"energy_now", "energy_full"}, {"charge_now", "charge_full"}} {
		now, errNow := readSysfsFloat(supply, pair[0])
		full, errFull := readSysfsFloat(supply, pair[1])
		if errNow != nil || errFull != nil {
			continue
		}
		if full <= 0 {
			return 0, nil
		}
		return now / full * 100, nil
	}
	return 0, diagnostics.ErrNotFound
}

// GPU returns the first display controller reported by lspci.
func (h *Host) GPU(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "lspci", "-mm")
	if err != nil {
		return "", classify(diagnostics.MetricGPU, fmt.Errorf("lspci: %w", err))
	}
	gpus := parseLspciOutput(string(out))
	if len(gpus) == 0 {
		return "", diagnostics.NewProviderError(diagnostics.MetricGPU, diagnostics.ErrNotFound, nil)
	}
	return gpus[0].Model, nil
}

// Identity reads manufacturer and model from the DMI tables.
func (h *Host) Identity(_ context.Context) (diagnostics.Identity, error) {
	dmi := filepath.Join(h.sysRoot, "class", "dmi", "id")
	if _, err := os.Stat(dmi); err != nil {
		return diagnostics.Identity{}, classify(diagnostics.MetricIdentity, err)
	}
	id := diagnostics.Identity{
		Manufacturer: dmiValue(readSysfs(dmi, "sys_vendor")),
		Model:        dmiValue(readSysfs(dmi, "product_name")),
	}
	if id.Manufacturer == "" && id.Model == "" {
		return diagnostics.Identity{}, diagnostics.NewProviderError(diagnostics.MetricIdentity, diagnostics.ErrNotFound, nil)
	}
	return id, nil
}

// dmiValue drops firmware placeholder strings.
func dmiValue(s string) string {
	switch strings.ToLower(s) {
	case "to be filled by o.e.m.", "default string", "system product name", "system manufacturer", "not applicable":
		return ""
	}
	return s
}

// isRemovable reports whether the disk behind device is flagged removable.
func (h *Host) isRemovable(device string) bool {
	name := parentBlockDevice(filepath.Base(device))
	return readSysfs(filepath.Join(h.sysRoot, "block", name), "removable") == "1"
}

func (h *Host) adapterKind(name string) string {
	return classifyNICType(name, readSysfs(filepath.Join(h.sysRoot, "class", "net", name), "type"))
}

func (h *Host) describeAdapter(name string) string {
	return fmt.Sprintf("%s (%s)", name, h.adapterKind(name))
}

func isNoDevice(err error) bool {
	return errors.Is(err, unix.ENODEV) || errors.Is(err, unix.ENXIO)
}

// readSysfs returns the trimmed content of dir/attr, or "" if unreadable.
func readSysfs(dir, attr string) string {
	raw, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func readSysfsFloat(dir, attr string) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
}

// gpuInfo is one display controller from lspci.
type gpuInfo struct {
	Slot   string
	Vendor string
	Device string
	Model  string
}

// gpuClasses are the lspci device classes treated as GPUs.
var gpuClasses = map[string]bool{
	"VGA compatible controller": true,
	"3D controller":             true,
	"Display controller":        true,
}

// parseLspciOutput extracts display controllers from `lspci -mm` output.
func parseLspciOutput(output string) []gpuInfo {
	var gpus []gpuInfo
	for _, line := range strings.Split(output, "\n") {
		fields := parseQuotedFields(strings.TrimSpace(line))
		if len(fields) < 4 || !gpuClasses[fields[1]] {
			continue
		}
		gpus = append(gpus, gpuInfo{
			Slot:   fields[0],
			Vendor: fields[2],
			Device: fields[3],
			Model:  strings.TrimSpace(fields[2] + " " + fields[3]),
		})
	}
	return gpus
}

// parseQuotedFields splits a line into space-separated fields, where a field
// may be wrapped in double quotes to contain spaces.
func parseQuotedFields(line string) []string {
	var (
		fields   []string
		b        strings.Builder
		inQuote  bool
		hasField bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
			hasField = true
		case r == ' ' && !inQuote:
			if hasField {
				fields = append(fields, b.String())
				b.Reset()
				hasField = false
			}
		default:
			b.WriteRune(r)
			hasField = true
		}
	}
	if hasField {
		fields = append(fields, b.String())
	}
	return fields
}
