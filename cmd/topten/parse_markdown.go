package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"topten/internal/api"
)

var (
	listItemRegex  = regexp.MustCompile(`^\s*(?:[-*]|(\d+)[.)])\s+(.*)$`)
	imageRefRegex  = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)\)`)
	leadLinkRegex  = regexp.MustCompile(`^\[([^\]]+)\]\(([^)\s]+)\)`)
	descriptionSep = " - "
)

type markdownFrontMatter struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
}

// parseMarkdown reads a list written as markdown: optional YAML front matter
// with title and category, then one bullet or numbered line per item.
//
//	1. [Lucali](https://lucali.com) - thin crust ![](img/lucali.jpg)
//
// Numbered lines set the item position. A leading link supplies the title
// and external URL, an image reference supplies a local path or remote URL,
// and text after " - " becomes the description.
func parseMarkdown(input string) (api.CreateListRequest, error) {
	var req api.CreateListRequest
	content := strings.ReplaceAll(input, "\r\n", "\n")

	lines := strings.Split(content, "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return req, fmt.Errorf("front matter not closed")
		}
		var front markdownFrontMatter
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &front); err != nil {
			return req, fmt.Errorf("front matter: %w", err)
		}
		req.Title = strings.TrimSpace(front.Title)
		req.Category = strings.TrimSpace(front.Category)
		lines = lines[end+1:]
	}

	req.Items = []api.ItemRequest{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if req.Title == "" && strings.HasPrefix(trimmed, "# ") {
			req.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			continue
		}
		match := listItemRegex.FindStringSubmatch(line)
		if len(match) != 3 || strings.TrimSpace(match[2]) == "" {
			continue
		}
		item := parseMarkdownItem(match[2])
		if match[1] != "" {
			position, err := strconv.Atoi(match[1])
			if err != nil {
				return req, fmt.Errorf("invalid item number %q", match[1])
			}
			item.Position = position
		}
		req.Items = append(req.Items, item)
	}

	return req, nil
}

func parseMarkdownItem(text string) api.ItemRequest {
	var item api.ItemRequest

	if match := imageRefRegex.FindStringSubmatch(text); len(match) == 2 {
		ref := match[1]
		if isRemoteRef(ref) {
			item.ImageURL = ref
		} else {
			item.ImagePath = ref
		}
		text = imageRefRegex.ReplaceAllString(text, "")
	}
	text = strings.TrimSpace(text)

	if match := leadLinkRegex.FindStringSubmatch(text); len(match) == 3 {
		item.Title = strings.TrimSpace(match[1])
		item.ExternalURL = match[2]
		text = strings.TrimSpace(text[len(match[0]):])
		item.Description = strings.TrimSpace(strings.TrimPrefix(text, strings.TrimSpace(descriptionSep)))
		return item
	}

	if idx := strings.Index(text, descriptionSep); idx >= 0 {
		item.Title = strings.TrimSpace(text[:idx])
		item.Description = strings.TrimSpace(text[idx+len(descriptionSep):])
		return item
	}
	item.Title = text
	return item
}

func isRemoteRef(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
