package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/leadfile"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/report"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Import, list and export campaign leads",
}

// -- leads import --

var leadsImportCmd = &cobra.Command{
	Use:   "import <campaign-id> <file>",
	Short: "Import leads from a .csv or .xlsx file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[1])
		if err != nil {
			return eris.Wrap(err, "leads import: open file")
		}
		defer f.Close() //nolint:errcheck

		rows, err := leadfile.Read(ctx, filepath.Base(args[1]), f)
		if err != nil {
			return eris.Wrap(err, "leads import")
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Ingester.Ingest(ctx, args[0], rows)
		if sum != nil {
			zap.L().Info("leads imported",
				zap.String("campaign_id", args[0]),
				zap.Int("imported", sum.Imported),
				zap.Int("matched", sum.Matched),
			)
			formatLeadList(os.Stdout, report.LeadViews(sum.Leads, cfg.App.PublicURL))
		}
		return err
	},
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list <campaign-id>",
	Short: "List a campaign's leads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter, err := leadFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		_, list, err := env.Loader.Leads(ctx, args[0], filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadList(os.Stdout, report.LeadViews(list, cfg.App.PublicURL))
		return nil
	},
}

func leadFilterFromFlags(cmd *cobra.Command) (model.LeadFilter, error) {
	var filter model.LeadFilter
	status, _ := cmd.Flags().GetString("status")
	switch model.LeadStatus(status) {
	case "", model.LeadPending, model.LeadCompleted:
		filter.Status = model.LeadStatus(status)
	default:
		return filter, eris.Errorf("leads: unknown status %q", status)
	}
	if match, _ := cmd.Flags().GetString("match"); match != "" {
		b, err := strconv.ParseBool(match)
		if err != nil {
			return filter, eris.Wrapf(err, "leads: parse --match %q", match)
		}
		filter.Match = &b
	}
	return filter, nil
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export <campaign-id>",
	Short: "Export leads with interview links as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		c, list, err := env.Loader.Leads(ctx, args[0], model.LeadFilter{})
		if err != nil {
			return eris.Wrap(err, "leads export")
		}

		out, _ := cmd.Flags().GetString("out")
		return writeCSVFile(out, report.LeadsFilename(c), func(w io.Writer) error {
			return report.WriteLeadsCSV(w, list, cfg.App.PublicURL)
		})
	},
}

// writeCSVFile writes to stdout when out is "-", to out when set, and to
// the default filename otherwise.
func writeCSVFile(out, defaultName string, write func(io.Writer) error) error {
	if out == "-" {
		return write(os.Stdout)
	}
	if out == "" {
		out = defaultName
	}
	f, err := os.Create(out)
	if err != nil {
		return eris.Wrap(err, "create csv file")
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "close csv file")
	}
	fmt.Fprintln(os.Stderr, "Wrote", out)
	return nil
}

// formatLeadList writes a tabular list of leads to out.
func formatLeadList(out io.Writer, views []report.LeadView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tICP\tSTATUS\tINTERVIEW")
	_, _ = fmt.Fprintln(w, "----\t---\t------\t---------")
	for _, v := range views {
		link := v.InterviewURL
		if link == "" {
			link = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.MatchLabel, v.Status, link)
	}
	_ = w.Flush()
}

func init() {
	leadsListCmd.Flags().String("status", "", "filter by status (pending or completed)")
	leadsListCmd.Flags().String("match", "", "filter by ICP match (true or false)")
	leadsExportCmd.Flags().String("out", "", `output path ("-" for stdout, default <title>_leads.csv)`)

	leadsCmd.AddCommand(leadsImportCmd, leadsListCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}
