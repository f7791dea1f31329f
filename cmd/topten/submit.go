package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"topten/internal/api"
	"topten/internal/config"
	"topten/internal/models"
)

func newSubmitCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		title    string
		category string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file.yaml|file.md>",
		Short: "Submit a top-ten list from a YAML or markdown file",
		Args:  requireExactlyArgs(1, "list file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := loadListFile(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(title) != "" {
				req.Title = title
			}
			if strings.TrimSpace(category) != "" {
				req.Category = category
			}
			if err := checkListRequest(req); err != nil {
				return err
			}

			if dryRun {
				if *jsonOutput {
					return writeJSON(req)
				}
				return writeRequestPreview(req)
			}

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateList(cmd.Context(), req)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resp)
				}
				return writePlain("created list %d\n", resp.ID)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "override the list title")
	cmd.Flags().StringVar(&category, "category", "", "override the list category")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file and print the submission without sending it")

	return cmd
}

// loadListFile reads a list from YAML or markdown. Relative image paths are
// resolved against the file's directory.
func loadListFile(path string) (api.CreateListRequest, error) {
	var req api.CreateListRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		req, err = parseMarkdown(string(data))
		if err != nil {
			return req, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	baseDir := filepath.Dir(path)
	for i := range req.Items {
		ref := strings.TrimSpace(req.Items[i].ImagePath)
		if ref == "" {
			continue
		}
		if isRemoteRef(ref) {
			req.Items[i].ImagePath = ""
			req.Items[i].ImageURL = ref
			continue
		}
		if !filepath.IsAbs(ref) {
			ref = filepath.Join(baseDir, ref)
		}
		req.Items[i].ImagePath = ref
	}
	return req, nil
}

// checkListRequest catches mistakes before anything is uploaded. The server
// repeats these checks.
func checkListRequest(req api.CreateListRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("list title is required")
	}
	if len(req.Items) > models.MaxListItems {
		return fmt.Errorf("a list holds at most %d items, got %d", models.MaxListItems, len(req.Items))
	}
	for i, item := range req.Items {
		if item.Position != 0 && !models.IsValidPosition(item.Position) {
			return fmt.Errorf("item %d: position %d is out of range", i+1, item.Position)
		}
		if item.ImagePath == "" {
			continue
		}
		info, err := os.Stat(item.ImagePath)
		if err != nil {
			return fmt.Errorf("item %d: image %s: %w", i+1, item.ImagePath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("item %d: image %s is a directory", i+1, item.ImagePath)
		}
	}
	return nil
}

func writeRequestPreview(req api.CreateListRequest) error {
	category := req.Category
	if category == "" {
		category = "(none)"
	}
	if err := writePlain("title: %s\ncategory: %s\n", req.Title, category); err != nil {
		return err
	}
	for i, item := range req.Items {
		position := item.Position
		if position == 0 {
			position = i + 1
		}
		line := fmt.Sprintf("  %2d. %s", position, item.Title)
		switch {
		case item.ImagePath != "":
			line += " [upload " + filepath.Base(item.ImagePath) + "]"
		case item.ImageURL != "":
			line += " [image " + item.ImageURL + "]"
		}
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}
