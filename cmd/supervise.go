package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/smazurov/procman/internal/api"
	"github.com/smazurov/procman/internal/config"
	"github.com/smazurov/procman/internal/events"
	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/metrics"
	"github.com/smazurov/procman/internal/nats"
	"github.com/smazurov/procman/internal/supervisor"
	"github.com/smazurov/procman/internal/systemd"
	"github.com/smazurov/procman/internal/worker"
)

// supervise loads configuration, wires the observability stack around a
// Manager and blocks until the pool has drained.
func supervise(cmd *cobra.Command, opts *Options, launcher *supervisor.ExecLauncher, entry worker.Entry) error {
	if err := config.LoadConfig(opts, cmd); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Initialize(opts.loggingConfig())

	var logger logging.Logger = logging.GetLogger("main")
	if opts.Silent {
		logger = logging.Nop()
	}

	so, err := opts.supervisorOptions()
	if err != nil {
		return err
	}

	launcher.Title = opts.WorkerName
	if launcher.Reexec() {
		launcher.Env = append(launcher.Env, opts.workerEnv()...)
	}

	bus := events.New()
	so.Bus = bus
	so.Launcher = launcher
	so.Entry = entry

	mgr, err := supervisor.New(so)
	if err != nil {
		return err
	}

	defer metrics.Subscribe(bus)()

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))
	defer notifier.Subscribe(bus, mgr.Status)()

	if opts.Listen != "" {
		server := api.NewServer(&api.Options{
			Supervisor:        mgr,
			EventBus:          bus,
			PrometheusHandler: promhttp.Handler(),
		})
		go func() {
			logger.Info("Starting HTTP server", "addr", opts.Listen)
			if startErr := server.Start(opts.Listen); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", startErr)
			}
		}()
		defer func() {
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		}()
	}

	if stopNATS := startNATS(opts, mgr, bus, launcher.Name()); stopNATS != nil {
		defer stopNATS()
	}

	if watcher := watchLogLevels(opts.Config, logger); watcher != nil {
		defer func() { _ = watcher.Stop() }()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("Starting supervisor", "workers", opts.Processes, "worker", launcher.Name())
	return mgr.Start(ctx)
}

// watchLogLevels hot-reloads log levels from the config file, if there is one.
func watchLogLevels(path string, logger logging.Logger) *config.Watcher[logging.Config] {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.WatchLogging(path, logger)
	if err != nil {
		logger.Warn("Config watcher disabled", "path", path, "error", err)
		return nil
	}
	return w
}

// startNATS connects the event publisher, starting the embedded server
// first when asked to. It returns nil when NATS is not configured.
func startNATS(opts *Options, mgr *supervisor.Manager, bus *events.Bus, worker string) func() {
	logger := logging.GetLogger("nats")

	url := opts.NatsURL
	var embedded *nats.Server
	if url == "" && opts.NatsEmbedded {
		embedded = nats.NewServer(nats.ServerOptions{Logger: logger})
		if err := embedded.Start(); err != nil {
			logger.Warn("Embedded NATS server disabled", "error", err)
			return nil
		}
		url = embedded.ClientURL()
	}
	if url == "" {
		return nil
	}

	publisher := nats.NewPublisher(url, worker, mgr, logger)
	// Connect failures are logged; the publisher stays in offline mode.
	_ = publisher.Connect()
	unsubscribe := publisher.Subscribe(bus)

	return func() {
		unsubscribe()
		publisher.Close()
		if embedded != nil {
			embedded.Stop()
		}
	}
}
