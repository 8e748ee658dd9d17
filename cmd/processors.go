package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/askiada/go-dframe/pkg/pipeline"
	"github.com/askiada/go-dframe/pkg/processors"
)

// NewProcessorsCommand returns the command listing the processors a definition can use.
func NewProcessorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "processors",
		Short: "List the available processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range newRegistry().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}

func newRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	processors.Register(reg)

	return reg
}
