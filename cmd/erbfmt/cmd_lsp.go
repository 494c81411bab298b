package main

import (
	"github.com/spf13/cobra"

	"github.com/davidwessman/syntax-tree-erb/erb/langserver"
	"github.com/davidwessman/syntax-tree-erb/format"
)

func newLSPCmd() *cobra.Command {
	var maxWidth int

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := langserver.NewLSPServer("0.1.0", maxWidth)
			return server.RunStdio()
		},
	}

	cmd.Flags().IntVar(&maxWidth, "width", format.DefaultMaxWidth, "maximum line width")

	return cmd
}
