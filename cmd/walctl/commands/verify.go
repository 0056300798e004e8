package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/wal"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Decode every segment and check its checksum",
		Long: `Verify decodes all segments concurrently. It fails on the first corrupt
segment. Only the newest segment is expected to be unsealed; any other
unsealed segment is reported as a warning.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			contents, err := wal.ReadAll(cmd.Context(), a.cfg.WAL.Directory)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SEQUENCE\tENTRIES\tSEALED")
			total := 0
			var warnings []string
			for i, seg := range contents {
				total += len(seg.Entries)
				fmt.Fprintf(w, "%d\t%d\t%t\n", seg.Sequence, len(seg.Entries), seg.Sealed)
				if !seg.Sealed && i < len(contents)-1 {
					warnings = append(warnings, fmt.Sprintf("segment %d is not sealed but is not the newest", seg.Sequence))
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, msg := range warnings {
				fmt.Fprintf(out, "warning: %s\n", msg)
				a.logger.Warn("Unsealed segment before the active one", "detail", msg)
			}
			fmt.Fprintf(out, "verified %d segments, %d entries\n", len(contents), total)
			return nil
		},
	}
}
