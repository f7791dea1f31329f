package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"topten/internal/api"
	"topten/internal/format"
	"topten/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeListSummaries(lists []api.ListResponse) error {
	if len(lists) == 0 {
		return writePlain("no lists yet\n")
	}
	for _, list := range lists {
		if err := writePlain("%s\n", formatListLine(list)); err != nil {
			return err
		}
	}
	return nil
}

func writeListDetail(list api.ListResponse) error {
	lines := []string{
		fmt.Sprintf("id: %d", list.ID),
		fmt.Sprintf("title: %s", list.Title),
		fmt.Sprintf("category: %s", models.CategoryLabel(list.Category)),
		fmt.Sprintf("owner: %s", list.OwnerID),
		fmt.Sprintf("created_at: %s", formatTime(list.CreatedAt)),
	}
	if len(list.Items) > 0 {
		lines = append(lines, "items:")
	}
	for _, item := range list.Items {
		lines = append(lines, formatItemLines(item)...)
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatListLine(list api.ListResponse) string {
	return fmt.Sprintf("#%d [%s] %s (%d items, %s)",
		list.ID, list.Category, list.Title, list.ItemCount, formatTime(list.CreatedAt))
}

func formatItemLines(item models.ListItem) []string {
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	lines := []string{fmt.Sprintf("  %2d. %s", item.Position, title)}
	if item.Description != "" {
		lines = append(lines, "      "+item.Description)
	}
	if item.ImageURL != nil {
		lines = append(lines, "      image: "+*item.ImageURL)
	}
	if item.ExternalURL != nil {
		lines = append(lines, "      link: "+*item.ExternalURL)
	}
	return lines
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
