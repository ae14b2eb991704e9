package main

import (
	"fmt"
	"io"
	"time"

	"bookshelf/internal/indexer"

	"github.com/spf13/cobra"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Build or update the catalog of a library directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.libraryDir(args)
			if err != nil {
				return err
			}

			_, report, err := indexer.BuildOrUpdateCatalog(cmd.Context(), dir, indexerOptions(ctx.config))
			writeMetricsFile(ctx.config)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), cmd.ErrOrStderr(), report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	return cmd
}

func printReport(out, errOut io.Writer, report *indexer.Report) {
	if report.LoadWarning != nil {
		fmt.Fprintf(errOut, "warning: %v\n", report.LoadWarning)
	}
	for _, err := range report.Errors() {
		fmt.Fprintf(errOut, "warning: %v\n", err)
	}

	fmt.Fprintf(out, "Scanned %d, added %d, duplicates %d, skipped %d in %s\n",
		report.Scanned, report.Inserted, report.Duplicates, report.Skipped,
		report.Duration.Round(time.Millisecond))
	if report.CoverFailures > 0 {
		fmt.Fprintf(out, "%d covers could not be written\n", report.CoverFailures)
	}
}
