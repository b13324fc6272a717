package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "fitquery",
		Short:        "Resolve conversational queries over FIT installations",
		SilenceUsage: true,
	}

	var gazetteerPath string
	rootCmd.PersistentFlags().StringVar(&gazetteerPath, "gazetteer", "", "gazetteer YAML file (defaults to the embedded one)")

	rootCmd.AddCommand(resolveCmd(&gazetteerPath))
	rootCmd.AddCommand(searchCmd(&gazetteerPath))
	rootCmd.AddCommand(locateCmd(&gazetteerPath))
	rootCmd.AddCommand(windowCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveCmd(gazetteerPath *string) *cobra.Command {
	var (
		sessionID string
		catalogue string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Read one turn per line from stdin and print each resolved filter",
		Long: "Read one turn per line from stdin and print each resolved filter.\n" +
			"With --catalogue every turn is also executed, so follow-ups can refer back to results.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runResolve(cmd.InOrStdin(), cmd.OutOrStdout(), *gazetteerPath, sessionID, catalogue)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (a new one is generated when empty)")
	cmd.Flags().StringVarP(&catalogue, "catalogue", "c", "", "YAML catalogue fixture to execute turns against")
	return cmd
}

func searchCmd(gazetteerPath *string) *cobra.Command {
	var (
		catalogue string
		topK      int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Resolve and execute a single query against a catalogue fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.OutOrStdout(), *gazetteerPath, catalogue, args[0], topK)
		},
	}
	cmd.Flags().StringVarP(&catalogue, "catalogue", "c", "data/installations.yaml", "YAML catalogue fixture")
	cmd.Flags().IntVarP(&topK, "top", "k", 20, "number of results")
	return cmd
}

func locateCmd(gazetteerPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "locate [place or postcode]",
		Short: "Resolve a place name or postcode through the gazetteer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocate(cmd.OutOrStdout(), *gazetteerPath, args)
		},
	}
}

func windowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "window [years-remaining]",
		Short: "Classify years of subsidy remaining into a repowering window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(cmd.OutOrStdout(), args[0])
		},
	}
}
