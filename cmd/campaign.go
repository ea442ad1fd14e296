package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/report"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage interview campaigns",
}

// -- campaign create --

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign from flags or a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		c, err := campaignFromFlags(cmd)
		if err != nil {
			return err
		}
		c.Normalize()
		if err := c.Validate(); err != nil {
			return err
		}

		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.CreateCampaign(ctx, c); err != nil {
			return eris.Wrap(err, "campaign create")
		}
		zap.L().Info("campaign created", zap.String("id", c.ID), zap.String("title", c.Title))
		return printJSON(os.Stdout, c)
	},
}

// campaignFromFlags builds a campaign from --file, then lets explicit flags
// override individual fields.
func campaignFromFlags(cmd *cobra.Command) (*model.Campaign, error) {
	c := &model.Campaign{}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "campaign: read file")
		}
		if c, err = parseCampaignYAML(data); err != nil {
			return nil, err
		}
	}

	fields := []struct {
		flag string
		dst  *string
	}{
		{"title", &c.Title},
		{"pain", &c.HypothesisPain},
		{"job", &c.HypothesisJob},
		{"icp", &c.TargetICPDescription},
		{"q1", &c.Question1},
		{"q2", &c.Question2},
		{"q3", &c.Question3},
		{"q4", &c.Question4},
	}
	for _, f := range fields {
		if cmd.Flags().Changed(f.flag) {
			*f.dst, _ = cmd.Flags().GetString(f.flag)
		}
	}
	if cmd.Flags().Changed("q5") {
		q5, _ := cmd.Flags().GetString("q5")
		c.Question5Open = &q5
	}
	return c, nil
}

func parseCampaignYAML(data []byte) (*model.Campaign, error) {
	var c model.Campaign
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "campaign: parse yaml")
	}
	return &c, nil
}

// -- campaign list --

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		campaigns, err := st.ListCampaigns(ctx)
		if err != nil {
			return eris.Wrap(err, "campaign list")
		}
		if len(campaigns) == 0 {
			fmt.Fprintln(os.Stderr, "No campaigns found.")
			return nil
		}
		formatCampaignList(os.Stdout, campaigns)
		return nil
	},
}

// -- campaign show --

var campaignShowCmd = &cobra.Command{
	Use:   "show <campaign-id>",
	Short: "Show a campaign with its leads and responses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		validOnly, _ := cmd.Flags().GetBool("valid-only")
		d, err := env.Loader.Detail(ctx, args[0], report.Options{ValidOnly: validOnly})
		if err != nil {
			return eris.Wrap(err, "campaign show")
		}
		return printJSON(os.Stdout, d)
	},
}

// formatCampaignList writes a tabular list of campaigns to out.
func formatCampaignList(out io.Writer, campaigns []model.Campaign) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-----\t-------")
	for _, c := range campaigns {
		title := c.Title
		if len([]rune(title)) > 40 {
			title = string([]rune(title)[:37]) + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, title, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	f := campaignCreateCmd.Flags()
	f.String("file", "", "YAML file with campaign fields")
	f.String("title", "", "campaign title")
	f.String("pain", "", "pain hypothesis")
	f.String("job", "", "job-to-be-done hypothesis")
	f.String("icp", "", "target ICP description")
	f.String("q1", "", "question 1")
	f.String("q2", "", "question 2")
	f.String("q3", "", "question 3")
	f.String("q4", "", "question 4")
	f.String("q5", "", "optional open question")

	campaignShowCmd.Flags().Bool("valid-only", false, "only include responses from valid personas")

	campaignCmd.AddCommand(campaignCreateCmd, campaignListCmd, campaignShowCmd)
	rootCmd.AddCommand(campaignCmd)
}
