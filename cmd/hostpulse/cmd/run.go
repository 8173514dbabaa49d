package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/hostpulse/internal/config"
	"github.com/HerbHall/hostpulse/internal/console"
	"github.com/HerbHall/hostpulse/internal/diagnostics"
	"github.com/HerbHall/hostpulse/internal/event"
	"github.com/HerbHall/hostpulse/internal/probe"
	"github.com/HerbHall/hostpulse/internal/server"
	"github.com/HerbHall/hostpulse/internal/version"
)

// shutdownTimeout bounds the HTTP view's graceful shutdown.
const shutdownTimeout = 10 * time.Second

var errNoConsumers = errors.New("console and server are both disabled; nothing would consume snapshots")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample the host periodically",
	Long: "Collect a snapshot every interval and print it to the console. With\n" +
		"--server the latest snapshot is also served over HTTP, as a websocket\n" +
		"stream and as Prometheus metrics.",
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.Duration("interval", config.DefaultInterval, "time between snapshots")
	f.String("disk", "", "mount point to report disk usage for (default: first fixed volume)")
	f.Bool("console", true, "print each snapshot to stdout")
	f.Bool("server", false, "enable the HTTP view")
	f.String("addr", config.DefaultServerAddr, "HTTP view listen address")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, map[string]string{
		config.KeyInterval:       "interval",
		config.KeyDiskMount:      "disk",
		config.KeyConsoleEnabled: "console",
		config.KeyServerEnabled:  "server",
		config.KeyServerAddr:     "addr",
	})
	if err != nil {
		return fmt.Errorf("hostpulse run: %w", err)
	}

	logger, err := newLogger(settings.Log.Level, devMode)
	if err != nil {
		return fmt.Errorf("hostpulse run: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := probe.New(ctx, logger.Named("probe"), probe.WithDiskMount(settings.Disk.Mount))
	defer host.Close()

	if err := runAgent(ctx, settings, host, cmd.OutOrStdout(), logger); err != nil {
		logger.Error("hostpulse stopped with error", zap.Error(err))
		return err
	}
	return nil
}

// runAgent drives the scheduler until ctx is cancelled or the HTTP view fails.
func runAgent(ctx context.Context, settings config.Settings, provider diagnostics.Provider, out io.Writer, logger *zap.Logger) error {
	bus := event.NewBus(logger.Named("event"))

	if settings.Console.Enabled {
		printer := console.NewPrinter(out, console.FormatText, logger.Named("console"))
		bus.Subscribe("console", printer.Print)
	}

	var srv *server.Server
	srvErr := make(chan error, 1)
	if settings.Server.Enabled {
		burst := int(2*settings.Server.RateLimit) + 1
		srv = server.New(settings.Server.Addr, logger.Named("server"),
			server.WithRateLimit(settings.Server.RateLimit, burst))
		bus.Subscribe("server", srv.Update)
		go func() { srvErr <- srv.Start() }()
	}

	if bus.Len() == 0 {
		return errNoConsumers
	}

	assembler := diagnostics.NewAssembler(provider, logger.Named("diagnostics"))
	sched := diagnostics.NewScheduler(assembler, logger.Named("scheduler"))
	if err := sched.Start(ctx, settings.Interval, bus.Publish); err != nil {
		shutdownServer(srv, logger)
		return fmt.Errorf("start scheduler: %w", err)
	}

	logger.Info("HostPulse running", append(version.Fields(),
		zap.Duration("interval", sched.Interval()),
		zap.Bool("console", settings.Console.Enabled),
		zap.Bool("server", settings.Server.Enabled),
	)...)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		runErr = err
		if runErr == nil {
			runErr = errors.New("HTTP server exited unexpectedly")
		}
	}

	sched.Stop()
	shutdownServer(srv, logger)

	logger.Info("HostPulse stopped")
	return runErr
}

func shutdownServer(srv *server.Server, logger *zap.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
