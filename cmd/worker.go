package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/procman/internal/config"
	"github.com/smazurov/procman/internal/hooks"
	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/worker"
	"github.com/smazurov/procman/internal/worker/demo"
)

// workerOptions is the subset of settings a re-executed child reads from
// the environment its master prepared.
type workerOptions struct {
	LoggingLevel  string `env:"LOGGING_LEVEL"`
	LoggingFormat string `env:"LOGGING_FORMAT"`
	LoggingWorker string `env:"LOGGING_WORKER"`
}

// builtinWorkers maps worker names to their entries.
var builtinWorkers = map[string]func(args []string) worker.Entry{
	demo.Name: func(args []string) worker.Entry {
		return &demo.Entry{Args: args, Logger: logging.GetLogger("worker")}
	},
}

// RunWorker is the child side of a re-exec launch. It returns the exit code.
func RunWorker(args []string) int {
	opts := workerOptions{LoggingLevel: "info", LoggingFormat: "text", LoggingWorker: "info"}
	if err := config.LoadConfig(&opts, nil); err != nil {
		fmt.Fprintln(os.Stderr, "procman worker:", err)
	}
	logging.Initialize(logging.Config{
		Level:   opts.LoggingLevel,
		Format:  opts.LoggingFormat,
		Modules: map[string]string{"worker": opts.LoggingWorker},
	})
	logger := logging.GetLogger("worker").With("pid", os.Getpid())

	name := worker.Name()
	newEntry, ok := builtinWorkers[name]
	if !ok {
		logger.Error("Unknown worker", "name", name)
		return 1
	}

	return worker.RunChild(newEntry(args), hooks.Default, logger)
}
