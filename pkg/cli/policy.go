package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newPolicyCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Read or set subject capability policies",
	}
	cmd.AddCommand(newPolicyGetCmd(client))
	cmd.AddCommand(newPolicySetCmd(client))
	return cmd
}

func newPolicyGetCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <subject-id>",
		Short: "Show a subject's capability set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			if err := client.DoJSON(http.MethodGet, "/v1/subjects/"+args[0]+"/policy", nil, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
}

func newPolicySetCmd(client *Client) *cobra.Command {
	var grant []string

	cmd := &cobra.Command{
		Use:   "set <subject-id>",
		Short: "Replace a subject's capability set",
		Long: "Replace a subject's full capability set. Capabilities named with --grant\n" +
			"become true; everything else becomes false.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caps := map[string]bool{
				"upload":         false,
				"read":           false,
				"delete":         false,
				"read_all":       false,
				"add_subject":    false,
				"delete_subject": false,
				"set_policy":     false,
			}
			for _, name := range grant {
				if _, ok := caps[name]; !ok {
					return fmt.Errorf("unknown capability %q", name)
				}
				caps[name] = true
			}

			var resp map[string]interface{}
			if err := client.DoJSON(http.MethodPut, "/v1/subjects/"+args[0]+"/policy", caps, &resp); err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringSliceVar(&grant, "grant", nil, "capability to grant (repeatable)")
	return cmd
}

func newSubjectCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage subjects",
	}

	var (
		role string
		orgs []string
	)
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]interface{}
			err := client.DoJSON(http.MethodPost, "/v1/subjects", map[string]interface{}{
				"name":          args[0],
				"role":          role,
				"organizations": orgs,
			}, &resp)
			if err != nil {
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	create.Flags().StringVar(&role, "role", "user", "subject role label")
	create.Flags().StringSliceVar(&orgs, "org", nil, "organization ID to join (repeatable)")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <subject-id>",
		Short: "Remove a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.DoJSON(http.MethodDelete, "/v1/subjects/"+args[0], nil, nil)
		},
	})

	return cmd
}
