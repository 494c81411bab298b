package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidwessman/syntax-tree-erb/format"
)

func newFmtCmd() *cobra.Command {
	var overwrite bool
	var maxWidth int

	cmd := &cobra.Command{
		Use:   "fmt [file...]",
		Short: "Pretty-print ERB templates",
		Long: `Pretty-print ERB templates to stdout.

If no files are provided, reads a template from stdin.

Use -w to overwrite the files in place (requires file arguments).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if overwrite {
					return fmt.Errorf("-w requires file arguments")
				}
				source, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				output, err := format.Format(source, format.WithMaxWidth(maxWidth))
				if err != nil {
					return fmt.Errorf("format: %w", err)
				}
				_, err = os.Stdout.Write(output)
				return err
			}

			for _, filename := range args {
				source, err := os.ReadFile(filename)
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
				output, err := format.Format(source, format.WithMaxWidth(maxWidth))
				if err != nil {
					return fmt.Errorf("%s: %w", filename, err)
				}
				if overwrite {
					if err := os.WriteFile(filename, output, 0644); err != nil {
						return err
					}
					continue
				}
				if _, err := os.Stdout.Write(output); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "write", "w", false, "overwrite the files in place")
	cmd.Flags().IntVar(&maxWidth, "width", format.DefaultMaxWidth, "maximum line width")

	return cmd
}
