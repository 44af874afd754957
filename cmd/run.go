package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/procman/internal/hooks"
	"github.com/smazurov/procman/internal/supervisor"
	"github.com/smazurov/procman/internal/worker"
)

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Supervise a pool of an external command",
		Long: `Starts --processes copies of command, relays signals to them, replaces ` +
			`copies that exit and drains the pool on SIGINT or SIGTERM.`,
		Args: cobra.MinimumNArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			launcher := supervisor.NewCommandLauncher(args)
			if err := supervise(cmd, opts, launcher, &commandEntry{argv: args}); err != nil {
				fmt.Fprintln(os.Stderr, "procman:", err)
				os.Exit(1)
			}
		}),
	}
	// Everything after the command name belongs to the command.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// commandEntry lets the master validate an external command before
// launching it. External commands never run the in-process worker runtime.
type commandEntry struct {
	argv []string
}

func (e *commandEntry) Parse() error {
	if len(e.argv) == 0 {
		return errors.New("no command given")
	}
	if _, err := exec.LookPath(e.argv[0]); err != nil {
		return err
	}
	return nil
}

func (e *commandEntry) Boot(_ *hooks.Registry) (worker.App, error) {
	return nil, nil
}

func (e *commandEntry) Run(_ worker.App) error {
	return errors.New("external command cannot run in-process")
}
