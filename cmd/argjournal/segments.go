package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"argjournal/internal/core"
)

func newSegmentsCmd(a *app) *cobra.Command {
	var archive string
	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Inspect archived compaction segments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if cmd.Flags().Changed("archive") {
				a.cfg.Archive.Driver = archive
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&archive, "archive", "", "segment archive driver: memory|sqlite|postgres|blob")

	list := &cobra.Command{
		Use:   "list <run>",
		Short: "List the segments of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := core.OpenArchiveStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			infos, err := store.ListSegments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tGENERATION\tNODES\tEDGES\tSIMPLIFIED\tCREATED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%t\t%s\n", info.Sequence, info.Generation,
					info.NodeCount, info.EdgeCount, info.Simplified, info.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	show := &cobra.Command{
		Use:   "show <run> <seq>",
		Short: "Print one segment as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("segment sequence %q: %w", args[1], err)
			}
			store, err := core.OpenArchiveStore(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			seg, err := store.LoadSegment(cmd.Context(), args[0], seq)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(seg)
		},
	}
	cmd.AddCommand(list, show)
	return cmd
}
