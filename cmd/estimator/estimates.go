package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/estimator/pkg/estimate"
)

var showRooms bool

var estimatesCmd = &cobra.Command{
	Use:   "estimates",
	Short: "Print every estimate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(true)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		be, err := openBackend(cmd.Context(), cfg, logger, nil)
		if err != nil {
			return err
		}
		defer be.Close()

		list, err := be.data.ListEstimates(cmd.Context())
		if err != nil {
			return err
		}
		printEstimates(cmd.OutOrStdout(), list, showRooms)
		return nil
	},
}

func init() {
	estimatesCmd.Flags().BoolVarP(&showRooms, "rooms", "r", false, "List rooms under each estimate")
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func printEstimates(w io.Writer, list []estimate.Estimate, rooms bool) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, color.New(color.Faint).Sprint("no estimates"))
		return
	}
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("NAME"), bold.Sprint("ROOMS"), bold.Sprint("MIN"), bold.Sprint("MAX"))
	for _, e := range list {
		t := e.Totals()
		tbl.AddRow(e.ID, e.Name, len(e.Rooms), money(t.Min), money(t.Max))
		if !rooms {
			continue
		}
		for _, r := range e.RoomList() {
			rt := r.Totals()
			tbl.AddRow("", faint.Sprintf("  %s", r.Name), faint.Sprintf("%d products", len(r.Products)), money(rt.Min), money(rt.Max))
		}
	}
	tbl.RightAlign(3)
	tbl.RightAlign(4)
	_, _ = fmt.Fprintln(w, tbl)
}
