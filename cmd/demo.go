package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/procman/internal/logging"
	"github.com/smazurov/procman/internal/supervisor"
	"github.com/smazurov/procman/internal/worker/demo"
)

// CreateDemoCmd creates the demo command.
func CreateDemoCmd() *cobra.Command {
	var ballast string
	var heartbeat time.Duration
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Supervise the built-in demo worker",
		Long: `Runs a pool of the demo worker, a copy of this binary that logs a heartbeat, ` +
			`optionally holds --ballast bytes of memory and exits on SIGINT or SIGTERM. ` +
			`Useful for trying prefork, the memory monitor and shutdown escalation.`,
		Args: cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
			args := demo.Flags(ballast, heartbeat, grace)
			launcher := supervisor.NewReexecLauncher(demo.Name, args...)
			entry := &demo.Entry{Args: args, Logger: logging.GetLogger("worker")}
			if err := supervise(cmd, opts, launcher, entry); err != nil {
				fmt.Fprintln(os.Stderr, "procman:", err)
				os.Exit(1)
			}
		}),
	}

	cmd.Flags().StringVar(&ballast, "ballast", "0", "Memory each worker holds (e.g. 64MB)")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 10*time.Second, "Worker heartbeat log interval")
	cmd.Flags().DurationVar(&grace, "grace", 0, "Time each worker takes to finish after SIGTERM")
	return cmd
}
