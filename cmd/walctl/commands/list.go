package commands

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/wal"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the segment files in the WAL directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			segments, err := wal.ListSegments(a.cfg.WAL.Directory)
			if err != nil {
				return err
			}
			if len(segments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no segments")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEQUENCE\tBYTES\tFILE")
			for _, seg := range segments {
				fmt.Fprintf(w, "%d\t%d\t%s\n", seg.Sequence, seg.Size, filepath.Base(seg.Path))
			}
			return w.Flush()
		},
	}
}
