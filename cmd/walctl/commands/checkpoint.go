package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckpointCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Seal the active segment and advance the sequence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := a.openManager(managerOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			sealed := m.Sequence()
			if err := m.Checkpoint(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sealed segment %d, next sequence %d\n", sealed, m.Sequence())
			return closeFn()
		},
	}
}
