// Package console renders snapshots for terminal output.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/hostpulse/internal/diagnostics"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = fmt.Errorf("unknown output format (want %s, %s or %s)", FormatText, FormatJSON, FormatYAML)

// Render writes s to w in the given format.
func Render(w io.Writer, format string, s diagnostics.SystemStats) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		_, err := io.WriteString(w, Text(s))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Text formats s as the diagnostics block shown by the console view.
func Text(s diagnostics.SystemStats) string {
	var b strings.Builder
	b.WriteString("=== SYSTEM DIAGNOSTICS ===\n")
	fmt.Fprintf(&b, "CPU Usage: %.1f%%\n", s.CPUUsagePercent)
	fmt.Fprintf(&b, "RAM Usage: %.1f%%\n", s.RAMUsagePercent)
	fmt.Fprintf(&b, "Disk Usage: %.1f%%\n", s.DiskUsagePercent)
	fmt.Fprintf(&b, "Battery: %.1f%%\n", s.BatteryPercent)
	fmt.Fprintf(&b, "Network: %s\n", s.NetworkInfo)
	fmt.Fprintf(&b, "GPU: %s\n", s.GPUInfo)
	fmt.Fprintf(&b, "System: %s\n", s.SystemInfo)
	b.WriteString("===========================\n")
	return b.String()
}

// Printer is a snapshot consumer that writes each snapshot to an io.Writer.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	logger *zap.Logger
}

// NewPrinter creates a Printer writing format to w.
func NewPrinter(w io.Writer, format string, logger *zap.Logger) *Printer {
	return &Printer{w: w, format: format, logger: logger}
}

// Print renders s. Write errors are logged, not returned, so it can be used
// directly as a scheduler consumer.
func (p *Printer) Print(s diagnostics.SystemStats) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := Render(p.w, p.format, s); err != nil {
		p.logger.Warn("failed to render snapshot", zap.String("format", p.format), zap.Error(err))
	}
}
