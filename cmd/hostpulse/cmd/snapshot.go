package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/config"
	"github.com/HerbHall/hostpulse/internal/console"
	"github.com/HerbHall/hostpulse/internal/diagnostics"
	"github.com/HerbHall/hostpulse/internal/probe"
)

var (
	snapshotOutput string
	snapshotWindow time.Duration
	snapshotReport bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Collect and print a single snapshot",
	Long: "Collect one snapshot and print it. CPU usage is measured over --window,\n" +
		"so the command takes at least that long.",
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	f := snapshotCmd.Flags()
	f.StringVarP(&snapshotOutput, "output", "o", console.FormatText, "output format (text, json, yaml)")
	f.DurationVar(&snapshotWindow, "window", 500*time.Millisecond, "CPU sampling window")
	f.BoolVar(&snapshotReport, "report", false, "list metrics that fell back to defaults on stderr")
	f.String("disk", "", "mount point to report disk usage for (default: first fixed volume)")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	switch strings.ToLower(snapshotOutput) {
	case console.FormatText, console.FormatJSON, console.FormatYAML:
	default:
		return fmt.Errorf("hostpulse snapshot: %w: %q", console.ErrUnknownFormat, snapshotOutput)
	}

	settings, err := loadSettings(cmd, map[string]string{config.KeyDiskMount: "disk"})
	if err != nil {
		return fmt.Errorf("hostpulse snapshot: %w", err)
	}
	logger, err := newLogger(settings.Log.Level, devMode)
	if err != nil {
		return fmt.Errorf("hostpulse snapshot: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	host := probe.New(ctx, logger.Named("probe"), probe.WithDiskMount(settings.Disk.Mount))
	defer host.Close()

	if err := sleepCtx(ctx, snapshotWindow); err != nil {
		return err
	}

	return writeSnapshot(ctx, host, logger, cmd.OutOrStdout(), cmd.ErrOrStderr(), snapshotOutput, snapshotReport)
}

// writeSnapshot collects once from provider and renders the result to out.
// With report set, metrics that fell back to defaults are listed on errOut.
func writeSnapshot(ctx context.Context, provider diagnostics.Provider, logger *zap.Logger, out, errOut io.Writer, format string, report bool) error {
	rep := diagnostics.NewAssembler(provider, logger.Named("diagnostics")).CollectReport(ctx)

	if err := console.Render(out, format, rep.Stats); err != nil {
		return fmt.Errorf("render snapshot: %w", err)
	}
	if !report {
		return nil
	}

	if rep.Failure != nil {
		fmt.Fprintf(errOut, "collection failed: %v\n", rep.Failure)
	}
	for _, o := range rep.Outcomes {
		if !o.Fallback {
			continue
		}
		if o.Err != nil {
			fmt.Fprintf(errOut, "%s: default used (%v)\n", o.Metric, o.Err)
		} else {
			fmt.Fprintf(errOut, "%s: default used\n", o.Metric)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
