package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <sequence>",
		Short: "Delete sealed segments up to and including a sequence",
		Long:  `Purge removes every sealed segment whose sequence is <= the argument. The active segment is never removed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upTo, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence %q: %w", args[0], err)
			}

			m, closeFn, err := a.openManager(managerOptions{})
			if err != nil {
				return err
			}
			defer closeFn()

			removed, err := m.Purge(upTo)
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d segments\n", removed)
			if err != nil {
				return err
			}
			return closeFn()
		},
	}
}
