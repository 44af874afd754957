package main

import (
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/procman/cmd"
	"github.com/smazurov/procman/internal/version"
	"github.com/smazurov/procman/internal/worker"
)

func main() {
	// Re-executed workers never build the command line.
	if worker.IsChild() {
		os.Exit(cmd.RunWorker(os.Args[1:]))
	}

	cli := humacli.New(func(_ humacli.Hooks, _ *cmd.Options) {
		// Subcommands load the config file themselves so that flags
		// changed on their own command line keep precedence.
	})

	root := cli.Root()
	root.Use = "procman"
	root.Short = "Pre-forking process supervisor"
	root.Long = `procman runs a pool of worker processes, relays signals to them, ` +
		`replaces workers that exit and drains the pool on SIGINT or SIGTERM.`
	root.Version = version.String()
	root.Run = func(c *cobra.Command, _ []string) {
		_ = c.Help()
	}

	root.AddCommand(cmd.CreateRunCmd())
	root.AddCommand(cmd.CreateDemoCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
