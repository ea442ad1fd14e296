package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Operate on individual interviews",
}

// -- interview process --

var interviewProcessCmd = &cobra.Command{
	Use:   "process <token> <conversation-id>",
	Short: "Fetch, analyze and record a finished conversation",
	Long:  "Runs the post-call pipeline for a conversation, as the web client does when a call ends. Safe to repeat.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Processor.Process(ctx, args[1], args[0])
		if err != nil {
			return eris.Wrap(err, "interview process")
		}
		zap.L().Info("interview processed",
			zap.String("lead_id", out.LeadID),
			zap.Bool("already_recorded", out.AlreadyRecorded),
			zap.Bool("degraded", out.Degraded),
		)
		return printJSON(os.Stdout, out)
	},
}

// -- interview complete --

var interviewCompleteCmd = &cobra.Command{
	Use:   "complete <token>",
	Short: "Mark a lead's interview completed without recording answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "store")
		if err != nil {
			return err
		}
		defer env.Close()

		changed, err := env.Access.Complete(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "interview complete")
		}
		return printJSON(os.Stdout, map[string]any{"status": "completed", "changed": changed})
	},
}

func init() {
	interviewCmd.AddCommand(interviewProcessCmd, interviewCompleteCmd)
	rootCmd.AddCommand(interviewCmd)
}
