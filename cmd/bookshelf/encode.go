package main

import (
	"fmt"

	"bookshelf/internal/covers"

	"github.com/spf13/cobra"
)

func newEncodeCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <file>",
		Short: "Print a file (typically a cover) as standard base64",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := covers.EncodeFileBase64(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), data)
			return err
		},
	}
}
