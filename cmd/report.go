package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <campaign-id>",
	Short: "Show or export a campaign's interview responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		validOnly, _ := cmd.Flags().GetBool("valid-only")
		c, responses, err := env.Loader.Responses(ctx, args[0], report.Options{ValidOnly: validOnly})
		if err != nil {
			return eris.Wrap(err, "report")
		}

		if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
			out, _ := cmd.Flags().GetString("out")
			return writeCSVFile(out, report.ResponsesFilename(c), func(w io.Writer) error {
				return report.WriteResponsesCSV(w, c, responses)
			})
		}

		if len(responses) == 0 {
			fmt.Fprintln(os.Stderr, "No responses yet.")
			return nil
		}
		formatResponses(os.Stdout, c, responses)
		return nil
	},
}

// formatResponses writes each response as a block of question/answer pairs.
func formatResponses(out io.Writer, c *model.Campaign, responses []report.Response) {
	n := 4
	if c.HasOpenQuestion() {
		n = 5
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, r := range responses {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "Lead:\t%s\n", r.LeadName)
		_, _ = fmt.Fprintf(w, "Valid persona:\t%t\n", r.IsValidPersona)
		for q, a := range r.Answers.Slice()[:n] {
			_, _ = fmt.Fprintf(w, "Q%d:\t%s\n", q+1, a)
		}
	}
	_ = w.Flush()
}

func init() {
	reportCmd.Flags().Bool("csv", false, "export as CSV")
	reportCmd.Flags().String("out", "", `CSV output path ("-" for stdout, default <title>_responses.csv)`)
	reportCmd.Flags().Bool("valid-only", false, "only include responses from valid personas")
	rootCmd.AddCommand(reportCmd)
}
