package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yukino-dev/bugsnap/internal/backend"
	"github.com/yukino-dev/bugsnap/internal/config"
)

// NewReportsCmd creates the reports command.
func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List bug reports received by the backend",
		Long: `Reports lists the bug reports stored in the backend database,
newest first, with a pointer to each rendered markdown summary.`,
		RunE: runReportsCmd,
	}

	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory holding the report database")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of reports to list (0 for all)")

	return cmd
}

// runReportsCmd executes the reports command.
func runReportsCmd(cmd *cobra.Command, _ []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	store, err := backend.OpenStore(dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reports, err := store.ListReports(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports received yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RECEIVED\tID\tTITLE\tASSETS\tSUMMARY")
	for _, r := range reports {
		received := "unknown"
		if !r.ReceivedAt.IsZero() {
			received = r.ReceivedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			received, r.ID, r.Title, len(r.Payload.Assets), r.SummaryPath)
	}
	return w.Flush()
}
