package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidwessman/syntax-tree-erb/format"
)

func newCheckCmd() *cobra.Command {
	var maxWidth int

	cmd := &cobra.Command{
		Use:   "check file...",
		Short: "Report files whose formatting differs from the canonical form",
		Long: `Check whether files are already formatted.

Prints the name of every file that would change and exits non-zero
when any file needs formatting. Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirty := 0
			for _, filename := range args {
				source, err := os.ReadFile(filename)
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
				output, err := format.Format(source, format.WithMaxWidth(maxWidth))
				if err != nil {
					return fmt.Errorf("%s: %w", filename, err)
				}
				if !bytes.Equal(source, output) {
					fmt.Fprintln(cmd.OutOrStdout(), filename)
					dirty++
				}
			}
			if dirty > 0 {
				return fmt.Errorf("%d file(s) not formatted", dirty)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxWidth, "width", format.DefaultMaxWidth, "maximum line width")

	return cmd
}
