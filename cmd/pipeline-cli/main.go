// notepipe-cli is the operator's read-only window into pipeline state:
// pattern occurrence counts and per-note processing status. It talks
// to Postgres directly, since the pipeline exposes no HTTP API of its
// own to go through.
//
// Usage:
//
//	notepipe-cli [--json] <command> <subcommand> [flags]
//
// Commands:
//
//	patterns  Inspect ingredient-line patterns
//	notes     Inspect note processing state
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/notepipe/internal/cli"
	"github.com/shaiso/notepipe/internal/repo"
)

var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "notepipe-cli",
		Short:         "notepipe operator CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	ctx := context.Background()
	pool, err := repo.NewPool(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: connect to database:", err)
		os.Exit(1)
	}
	defer pool.Close()

	patternRepo := repo.NewPatternRepo(pool)
	noteRepo := repo.NewNoteRepo(pool)
	client := cli.NewClient(patternRepo, noteRepo)

	clientFn := func() *cli.Client { return client }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewPatternsCmd(clientFn, outputFn),
		cli.NewNotesCmd(clientFn, outputFn),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
