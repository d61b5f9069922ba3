package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newIngestCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Submit data for ingestion",
	}
	cmd.AddCommand(newIngestFileCmd(client))
	cmd.AddCommand(newIngestAPICmd(client))
	return cmd
}

func newIngestFileCmd(client *Client) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Upload a file for ingestion into a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			if err := client.UploadFile("/v1/ingest/file", args[0], table, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "destination table name (required)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newIngestAPICmd(client *Client) *cobra.Command {
	var (
		table string
		count int
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Pull records from the configured remote API into a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			var resp map[string]interface{}
			err := client.DoJSON(http.MethodPost, "/v1/ingest/api", map[string]interface{}{
				"count":      count,
				"table_name": table,
			}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "destination table name (required)")
	cmd.Flags().IntVar(&count, "count", 0, "number of records to fetch (required)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("count")
	return cmd
}

func newJobCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect ingestion jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of an ingestion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			if err := client.DoJSON(http.MethodGet, "/v1/jobs/"+args[0], nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	})

	return cmd
}
