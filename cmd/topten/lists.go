package main

import (
	"github.com/spf13/cobra"

	"topten/internal/api"
	"topten/internal/config"
)

func newListsCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "lists",
		Short: "List submitted lists, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.ListLists(cmd.Context())
				if err != nil {
					return err
				}
				resp = filterByCategory(resp, category)
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeListSummaries(resp)
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only show lists in this category")
	return cmd
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a list with its items",
		Args:  requireListID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseListID(args[0])
			if err != nil {
				return err
			}
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetList(cmd.Context(), id)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeListDetail(resp)
			})
		},
	}

	return cmd
}

func filterByCategory(lists []api.ListResponse, category string) []api.ListResponse {
	if category == "" {
		return lists
	}
	out := make([]api.ListResponse, 0, len(lists))
	for _, list := range lists {
		if list.Category == category {
			out = append(out, list)
		}
	}
	return out
}
