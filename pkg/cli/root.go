// Package cli implements the tabsink command-line client.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host   string
		apiKey string
		token  string
	)

	client := NewClient(host, apiKey, token)

	rootCmd := &cobra.Command{
		Use:           "tabsink",
		Short:         "Tabular ingestion platform CLI",
		Long:          "Command-line interface for the tabsink ingestion platform API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Precedence: flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("TABSINK_HOST"); v != "" {
					host = v
				}
			}
			if !cmd.Flags().Changed("api-key") {
				if v := os.Getenv("TABSINK_API_KEY"); v != "" {
					apiKey = v
				}
			}
			if !cmd.Flags().Changed("token") {
				if v := os.Getenv("TABSINK_TOKEN"); v != "" {
					token = v
				}
			}
			client.BaseURL = host
			client.APIKey = apiKey
			client.Token = token
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "JWT token for authentication")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newIngestCmd(client))
	rootCmd.AddCommand(newJobCmd(client))
	rootCmd.AddCommand(newRecordsCmd(client))
	rootCmd.AddCommand(newPolicyCmd(client))
	rootCmd.AddCommand(newSubjectCmd(client))
	rootCmd.AddCommand(newFeaturesCmd(client))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// printJSON writes v as indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
