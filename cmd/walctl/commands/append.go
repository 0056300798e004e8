package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/clock"
	"github.com/INLOpen/nexuswal/core"
)

func newAppendCmd(a *app) *cobra.Command {
	var (
		kind       string
		payload    string
		txID       uint64
		maxPayload int
	)

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append one entry to the active segment",
		Long: `Append buffers one entry and rewrites the active segment. When the
buffered bytes already exceed the page size the segment is sealed first.

Kinds: insert, set, delete, begin, commit, checkpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := core.ParseEntryKind(kind)
			if err != nil {
				return err
			}
			var data []byte
			if cmd.Flags().Changed("payload") {
				data = []byte(payload)
			}

			m, closeFn, err := a.openManager(managerOptions{maxPayload: maxPayload})
			if err != nil {
				return err
			}
			defer closeFn()

			before := m.Sequence()
			entry := core.NewEntry(k, data, txID, clock.UnixSeconds(clock.Default))
			if err := m.AppendLog(entry); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if m.Sequence() != before {
				fmt.Fprintf(out, "sealed segment %d\n", before)
			}
			fmt.Fprintf(out, "appended %s entry to %s (%d entries, %d bytes buffered)\n",
				k, m.ActiveSegmentPath(), len(m.Buffered()), m.BufferedBytes())
			return closeFn()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "insert", "Entry kind")
	cmd.Flags().StringVar(&payload, "payload", "", "Entry payload")
	cmd.Flags().Uint64Var(&txID, "tx", 0, "Transaction ID")
	cmd.Flags().IntVar(&maxPayload, "max-payload", 0, "Reject data entries whose payload exceeds this many bytes (0 disables)")
	return cmd
}
