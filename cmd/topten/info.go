package main

import (
	"sort"

	"github.com/spf13/cobra"

	"topten/internal/api"
	"topten/internal/config"
)

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resp)
				}

				_ = writePlain("db_path: %s\n", cfg.DBPath)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("total_lists: %d\n", resp.TotalLists)
				_ = writePlain("total_items: %d\n", resp.TotalItems)
				_ = writePlain("items_with_images: %d\n", resp.ItemsWithImages)

				categories := make([]string, 0, len(resp.ListsByCategory))
				for category := range resp.ListsByCategory {
					categories = append(categories, category)
				}
				sort.Strings(categories)
				for _, category := range categories {
					_ = writePlain("  %s: %d\n", category, resp.ListsByCategory[category])
				}
				return nil
			})
		},
	}
	return cmd
}
