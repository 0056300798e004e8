package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"github.com/INLOpen/nexuswal/wal"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Recover the WAL directory and report its state",
		Long: `Status opens the WAL directory the same way a writer would, then reports
the active sequence, the buffered entries carried over from an unsealed
segment, the segment files on disk, the manager gauges and the disk usage
of the filesystem holding the directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			m, closeFn, err := a.openManager(managerOptions{registry: reg})
			if err != nil {
				return err
			}
			defer closeFn()

			segments, err := wal.ListSegments(m.Dir())
			if err != nil {
				return err
			}
			var segmentBytes int64
			for _, seg := range segments {
				segmentBytes += seg.Size
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Directory:\t%s\n", m.Dir())
			fmt.Fprintf(w, "Active sequence:\t%d\n", m.Sequence())
			fmt.Fprintf(w, "Active segment:\t%s\n", m.ActiveSegmentPath())
			fmt.Fprintf(w, "Page size:\t%d\n", m.PageSize())
			fmt.Fprintf(w, "Buffered entries:\t%d\n", len(m.Buffered()))
			fmt.Fprintf(w, "Buffered bytes:\t%d\n", m.BufferedBytes())
			fmt.Fprintf(w, "Segments:\t%d (%d bytes)\n", len(segments), segmentBytes)
			if du, err := disk.Usage(m.Dir()); err == nil {
				fmt.Fprintf(w, "Disk:\t%.1f%% used, %d bytes free\n", du.UsedPercent, du.Free)
			} else {
				a.logger.Debug("Disk usage unavailable", "dir", m.Dir(), "error", err)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			gauges, err := gatherGauges(reg)
			if err != nil {
				return err
			}
			if len(gauges) > 0 {
				fmt.Fprintln(out, "\nMetrics:")
				w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				for _, g := range gauges {
					fmt.Fprintf(w, "  %s\t%g\n", g.name, g.value)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}
			return closeFn()
		},
	}
}

type gaugeValue struct {
	name  string
	value float64
}

// gatherGauges returns the unlabelled WAL gauges of reg sorted by name.
func gatherGauges(reg *prometheus.Registry) ([]gaugeValue, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var gauges []gaugeValue
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "nexuswal_wal_") {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if g := metric.GetGauge(); g != nil && len(metric.GetLabel()) == 0 {
				gauges = append(gauges, gaugeValue{name: mf.GetName(), value: g.GetValue()})
			}
		}
	}
	sort.Slice(gauges, func(i, j int) bool { return gauges[i].name < gauges[j].name })
	return gauges, nil
}
