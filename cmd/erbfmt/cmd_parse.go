package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidwessman/syntax-tree-erb/erb/parser"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "Print the syntax tree of a template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source []byte
			var err error
			if len(args) == 0 {
				source, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			} else {
				source, err = os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read file: %w", err)
				}
			}

			doc, err := parser.Parse(source)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), parser.Dump(doc))
			return nil
		},
	}
}
