package cmd

import (
	"fmt"

	"github.com/smazurov/procman/internal/config"
	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/memprobe"
	"github.com/smazurov/procman/internal/supervisor"
)

// Options for the CLI - flat structure with toml mapping.
// Flags are global so every subcommand shares them.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"procman.toml"`

	// Pool settings
	Processes       int    `help:"Number of worker processes" short:"n" default:"1" toml:"supervisor.processes" env:"PROCESSES"`
	Prefork         bool   `help:"Boot the worker once in the master before launching children" default:"false" toml:"supervisor.prefork" env:"PREFORK"`
	Preboot         string `help:"Shell file run once in the master before launching children" toml:"supervisor.preboot" env:"PREBOOT"`
	ShutdownTimeout string `help:"Time draining workers get before SIGINT (default from worker, else 25s)" toml:"supervisor.shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	KillTimeout     string `help:"Time after SIGINT before SIGKILL (empty disables)" toml:"supervisor.kill_timeout" env:"KILL_TIMEOUT"`
	WorkerName      string `help:"Process title for worker children" toml:"supervisor.worker_name" env:"WORKER_NAME"`
	Silent          bool   `help:"Discard supervisor log output" default:"false" toml:"supervisor.silent" env:"SILENT"`

	// Memory monitor settings
	MaxMemory      string `help:"Evict workers above this size (e.g. 512MB, empty disables)" toml:"memory.max" env:"MAX_MEMORY"`
	MemoryMode     string `help:"Memory measurement (rss, uss, pss)" default:"rss" toml:"memory.mode" env:"MEMORY_MODE"`
	MemoryInterval string `help:"Memory scan interval" default:"1m" toml:"memory.interval" env:"MEMORY_INTERVAL"`

	// Status API settings
	Listen string `help:"Status API listen address (empty disables)" toml:"api.listen" env:"API_LISTEN"`

	// NATS settings
	NatsURL      string `help:"NATS server to mirror events to and take control requests from" toml:"nats.url" env:"NATS_URL"`
	NatsEmbedded bool   `help:"Run an embedded NATS server on 127.0.0.1:4222 when no URL is set" default:"false" toml:"nats.embedded" env:"NATS_EMBEDDED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingWorker     string `help:"Worker logging level" default:"info" toml:"logging.worker" env:"LOGGING_WORKER"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"supervisor": o.LoggingSupervisor,
			"worker":     o.LoggingWorker,
			"api":        o.LoggingAPI,
		},
	}
}

// workerEnv passes the resolved logging settings to re-executed children,
// which read them back through config.LoadConfig.
func (o *Options) workerEnv() []string {
	return []string{
		config.EnvPrefix + "LOGGING_LEVEL=" + o.LoggingLevel,
		config.EnvPrefix + "LOGGING_FORMAT=" + o.LoggingFormat,
		config.EnvPrefix + "LOGGING_WORKER=" + o.LoggingWorker,
	}
}

// supervisorOptions converts the string settings into supervisor.Options.
func (o *Options) supervisorOptions() (supervisor.Options, error) {
	var so supervisor.Options

	maxMemory, err := config.ParseSize(o.MaxMemory)
	if err != nil {
		return so, fmt.Errorf("max-memory: %w", err)
	}
	mode, err := memprobe.ParseMode(o.MemoryMode)
	if err != nil {
		return so, fmt.Errorf("memory-mode: %w", err)
	}
	interval, err := config.ParseDuration(o.MemoryInterval)
	if err != nil {
		return so, fmt.Errorf("memory-interval: %w", err)
	}
	shutdown, err := config.ParseDuration(o.ShutdownTimeout)
	if err != nil {
		return so, fmt.Errorf("shutdown-timeout: %w", err)
	}
	kill, err := config.ParseDuration(o.KillTimeout)
	if err != nil {
		return so, fmt.Errorf("kill-timeout: %w", err)
	}

	so = supervisor.Options{
		Processes:       o.Processes,
		Prefork:         o.Prefork,
		Preboot:         o.Preboot,
		MaxMemory:       maxMemory,
		MemoryMode:      mode,
		MemoryInterval:  interval,
		ShutdownTimeout: shutdown,
		KillTimeout:     kill,
		Silent:          o.Silent,
	}
	return so, nil
}
