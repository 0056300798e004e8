package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/core"
	"github.com/INLOpen/nexuswal/wal"
)

const maxPayloadPreview = 48

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump [sequence]",
		Short: "Print the entries of one segment",
		Long:  `Dump decodes a segment and prints its entries. Without an argument the newest segment is used.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.WAL.Directory
			var path string
			if len(args) == 1 {
				seq, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil || seq == 0 {
					return fmt.Errorf("invalid sequence %q", args[0])
				}
				path = filepath.Join(dir, core.FormatSegmentFileName(seq))
			} else {
				segments, err := wal.ListSegments(dir)
				if err != nil {
					return err
				}
				if len(segments) == 0 {
					return fmt.Errorf("no segments in %s", dir)
				}
				path = segments[len(segments)-1].Path
			}

			entries, err := wal.ReadSegment(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d entries\n", filepath.Base(path), len(entries))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tKIND\tTX\tTIMESTAMP\tSIZE\tPAYLOAD")
			for i := range entries {
				e := &entries[i]
				fmt.Fprintf(w, "%d\t%s\t%d\t%.6f\t%d\t%s\n",
					i, e.Kind, e.TransactionID, e.Timestamp, e.EncodedSize(), previewPayload(e))
			}
			return w.Flush()
		},
	}
}

func previewPayload(e *core.Entry) string {
	if !e.HasPayload() {
		return "-"
	}
	p := e.Payload
	if len(p) > maxPayloadPreview {
		return strconv.Quote(string(p[:maxPayloadPreview])) + "..."
	}
	return strconv.Quote(string(p))
}
