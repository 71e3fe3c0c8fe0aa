package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/slicesim/datarecording"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report recording.sqlite3",
	Short: "Summarize a recorded run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		limit, _ := cmd.Flags().GetInt("adjustments")

		return report(cmd.Context(), cmd.OutOrStdout(), reader, limit)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("adjustments", 10,
		"How many of the latest bandwidth adjustments to list")
}

func report(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	limit int,
) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	infos, _, err := reader.Query(ctx, datarecording.ExecTable,
		datarecording.QueryParams{})
	if err != nil {
		return err
	}

	for _, r := range infos {
		info := r.(*datarecording.ExecInfo)
		fmt.Fprintf(w, "%s:\t%s\n", info.Property, info.Value)
	}

	samples, count, err := reader.Query(ctx, datarecording.MetricSampleTable,
		datarecording.QueryParams{OrderBy: "TimeUnixMs DESC", Limit: 1})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Samples:\t%d\n", count)

	if len(samples) > 0 {
		last := samples[0].(*datarecording.MetricSample)
		fmt.Fprintf(w, "Sent:\t%d packets, %d bytes\n", last.PacketsSent, last.BytesSent)
		fmt.Fprintf(w, "Received:\t%d packets, %d bytes\n",
			last.PacketsReceived, last.BytesReceived)
		fmt.Fprintf(w, "Dropped:\t%d\n", last.PacketsDropped)
		fmt.Fprintf(w, "Average latency:\t%.3f ms\n", last.AverageLatencyMs)
		fmt.Fprintf(w, "Transform failures:\t%d\n", last.TransformFailures)

		slices, _, err := reader.Query(ctx, datarecording.SliceSampleTable,
			datarecording.QueryParams{
				Where:   "TimeUnixMs = ?",
				Args:    []any{last.TimeUnixMs},
				OrderBy: "SliceID",
			})
		if err != nil {
			return err
		}

		for _, r := range slices {
			sl := r.(*datarecording.SliceSample)
			fmt.Fprintf(w, "Slice %s:\t%d bps\n", sl.SliceID, sl.BandwidthBps)
		}
	}

	adjustments, total, err := reader.Query(ctx, datarecording.AdjustmentTable,
		datarecording.QueryParams{OrderBy: "TimeUnixMs DESC", Limit: limit})
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Adjustments:\t%d\n", total)

	for _, r := range adjustments {
		adj := r.(*datarecording.AdjustmentEntry)
		fmt.Fprintf(w, "  %d\t%s\t%d -> %d bps\n",
			adj.TimeUnixMs, adj.SliceID, adj.PreviousBps, adj.CurrentBps)
	}

	return nil
}
