package main

import "github.com/spf13/cobra"

var (
	sessionsFile string
	showFormat   string
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage the saved chats of a schematic",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved chats, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		state := k.SelectDocument(cmd.Context(), sessionsFile)
		return renderSessions(cmd.OutOrStdout(), sessionsFile, state.Sessions)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		data, err := k.Store().Load(cmd.Context(), sessionsFile, args[0])
		if err != nil {
			return err
		}
		return renderTranscript(cmd.OutOrStdout(), sessionsFile, data, showFormat)
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a saved chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _, err := newKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		ctx := cmd.Context()
		k.SelectDocument(ctx, sessionsFile)
		if err := k.DeleteSession(ctx, args[0]); err != nil {
			return err
		}
		return renderSessions(cmd.OutOrStdout(), sessionsFile, k.State().Sessions)
	},
}

func init() {
	sessionsCmd.PersistentFlags().StringVarP(&sessionsFile, "file", "f", "", "Schematic the chats belong to (required)")
	_ = sessionsCmd.MarkPersistentFlagRequired("file")
	sessionsShowCmd.Flags().StringVar(&showFormat, "format", formatText, "Output format: text, yaml or json")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd)
}
