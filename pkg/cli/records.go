package cli

import (
	"net/http"

	"github.com/spf13/cobra"
)

func newRecordsCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Read or delete ingested table records",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <table>",
		Short: "List the records of a table visible to you",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			if err := client.DoJSON(http.MethodGet, "/v1/tables/"+args[0]+"/records", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <table>",
		Short: "Withdraw your contribution to a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.DoJSON(http.MethodDelete, "/v1/tables/"+args[0]+"/records", nil, nil)
		},
	})

	return cmd
}

func newFeaturesCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show the capabilities granted to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp map[string]interface{}
			if err := client.DoJSON(http.MethodGet, "/v1/features", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}
