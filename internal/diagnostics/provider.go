package diagnostics

import (
	"context"
	"errors"
	"fmt"
)

// Metric names used in logs, errors and collection reports.
const (
	MetricCPU      = "cpu"
	MetricMemory   = "memory"
	MetricDisk     = "disk"
	MetricBattery  = "battery"
	MetricNetwork  = "network"
	MetricGPU      = "gpu"
	MetricIdentity = "identity"
)

// Provider answers the raw host queries a snapshot is built from.
// Every method is a single read-only attempt with no retries.
type Provider interface {
	CPU(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (Memory, error)
	Disk(ctx context.Context) (Disk, error)
	Battery(ctx context.Context) (Battery, error)
	Network(ctx context.Context) (Adapter, error)
	GPU(ctx context.Context) (string, error)
	Identity(ctx context.Context) (Identity, error)
}

// Memory is physical memory as reported in one query, in megabytes.
type Memory struct {
	TotalMB     float64
	AvailableMB float64
}

// Disk is the capacity of the single fixed volume chosen by the provider.
type Disk struct {
	Mount      string
	TotalBytes uint64
	FreeBytes  uint64
}

// Battery is the charge state. Present is false on machines without a battery.
type Battery struct {
	Present bool
	Percent float64
}

// Adapter is the first active network adapter.
type Adapter struct {
	Description string
	Addresses   []string
}

// String formats the adapter as "<description> - IP: <first address>".
func (a Adapter) String() string {
	if len(a.Addresses) == 0 {
		return a.Description
	}
	return fmt.Sprintf("%s - IP: %s", a.Description, a.Addresses[0])
}

// Identity is the machine manufacturer and model.
type Identity struct {
	Manufacturer string
	Model        string
}

// Kinds of provider failure. Match them with errors.Is.
var (
	ErrUnavailable      = errors.New("query mechanism unavailable")
	ErrNotFound         = errors.New("no matching device")
	ErrPermissionDenied = errors.New("permission denied")
	ErrParseFailure     = errors.New("parse failure")
)

// ProviderError reports a failed provider query.
type ProviderError struct {
	Metric string
	Kind   error
	Err    error
}

// NewProviderError builds a ProviderError; err may be nil.
func NewProviderError(metric string, kind, err error) *ProviderError {
	return &ProviderError{Metric: metric, Kind: kind, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Metric, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Metric, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the error's kind.
func (e *ProviderError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}
