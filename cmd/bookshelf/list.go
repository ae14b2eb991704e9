package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bookshelf/internal/catalog"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list [dir]",
		Short: "Print the persisted catalog",
		Long: "Print the persisted catalog. Output is a table on a terminal and\n" +
			"tab-separated title, source and cover columns otherwise.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := ctx.libraryDir(args)
			if err != nil {
				return err
			}

			c, err := catalog.NewStore(dir).Load()
			if err != nil {
				var loadErr *catalog.LoadError
				if !errors.As(err, &loadErr) {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", loadErr)
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonOutput:
				data, err := catalog.Encode(c)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case isTerminal(out):
				fmt.Fprintln(out, renderCatalogTable(c))
				return nil
			default:
				return writeTSV(out, c)
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the catalog in its persisted JSON format")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func renderCatalogTable(c catalog.Catalog) string {
	rows := make([][]string, 0, len(c))
	for i, e := range c {
		rows = append(rows, []string{fmt.Sprintf("%d", i+1), e.Title, e.SourceLocation, yesNo(e.CoverLocation != "")})
	}
	return renderTable(
		[]string{"#", "Title", "Source", "Cover"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}

var tsvEscaper = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func writeTSV(w io.Writer, c catalog.Catalog) error {
	for _, e := range c {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n",
			tsvEscaper.Replace(e.Title),
			tsvEscaper.Replace(e.SourceLocation),
			tsvEscaper.Replace(e.CoverLocation)); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
