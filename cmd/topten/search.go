package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"topten/internal/api"
	"topten/internal/config"
	"topten/internal/models"
)

func newSearchCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		entityType string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Look up entities to fill list items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.Search(cmd.Context(), query, entityType, limit)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writeSearchResults(resp)
			})
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "category value or entity type to restrict results to")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results")
	return cmd
}

func newCategoriesCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Show the preset list categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := models.PresetCategories()
			if *jsonOutput {
				return writeJSON(categories)
			}
			for _, c := range categories {
				if err := writePlain("%-14s %s\n", c.Value, c.Label); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// searchHit picks the display fields out of one provider result.
type searchHit struct {
	Result struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"result"`
}

func writeSearchResults(resp api.SearchResponse) error {
	if len(resp.Results) == 0 {
		return writePlain("no results\n")
	}
	for i, raw := range resp.Results {
		var hit searchHit
		if err := json.Unmarshal(raw, &hit); err != nil || hit.Result.Name == "" {
			if err := writePlain("%2d. %s\n", i+1, string(raw)); err != nil {
				return err
			}
			continue
		}
		line := hit.Result.Name
		if hit.Result.Description != "" {
			line += " (" + hit.Result.Description + ")"
		}
		if hit.Result.URL != "" {
			line += " " + hit.Result.URL
		}
		if err := writePlain("%2d. %s\n", i+1, line); err != nil {
			return err
		}
	}
	return nil
}
