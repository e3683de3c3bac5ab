package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/pillminder/internal/gateway"
	"github.com/teemow/pillminder/internal/prescription"
)

// Output formats accepted by expand --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatICS   = "ics"
)

func newExpandCmd() *cobra.Command {
	var (
		file   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the doses of a prescription file",
		Long: `Expand a prescription file into one entry per dose and print the result.

The file is YAML (or JSON) with the fields drugName, dose, days, timesPerDay,
times, startDate, timezone and notes. Missing dose times are derived from
timesPerDay.

Formats:
  - table: one row per dose (default)
  - json: the list of medication tasks
  - ics: an iCalendar document with one 15 minute event per dose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd.OutOrStdout(), file, format)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Prescription file (YAML or JSON)")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json or ics")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runExpand(w io.Writer, file, format string) error {
	switch format {
	case formatTable, formatJSON, formatICS:
	default:
		return fmt.Errorf("unsupported format %q (supported: %s, %s, %s)", format, formatTable, formatJSON, formatICS)
	}

	p, err := prescription.LoadFile(file)
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	switch format {
	case formatJSON:
		tasks, err := prescription.Expand(p)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case formatICS:
		events, err := prescription.Plan(p, gateway.PlanOptions())
		if err != nil {
			return err
		}
		return prescription.WriteICS(w, p.Title(), events)
	default:
		doses, err := prescription.Doses(p)
		if err != nil {
			return err
		}
		return writeDoseTable(w, doses)
	}
}

func writeDoseTable(w io.Writer, doses []prescription.Dose) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tDATE\tTIME\tUTC OFFSET\tDRUG")
	for _, d := range doses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			d.Task.Day, d.Task.Date, d.Task.Time, d.Start.Format("-07:00"), d.Task.DrugName)
	}
	return tw.Flush()
}
