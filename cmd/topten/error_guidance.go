package main

import (
	"context"
	"errors"
	"net"

	"topten/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch {
		case errors.Is(err, api.ErrMalformedSubmission):
			lines = append(lines, "hint: each list needs a title and at most 10 items with unique positions 1-10.")
		case errors.Is(err, api.ErrRequestTooLarge):
			lines = append(lines, "hint: shrink the attached images or raise uploads.max_upload_bytes on the server.")
		case errors.Is(err, api.ErrBusy):
			lines = append(lines, "hint: retry shortly; the server is busy with other requests.")
		case errors.Is(err, api.ErrSearchUnavailable):
			lines = append(lines, "hint: set search.api_key (or TOPTEN_SEARCH_API_KEY) where the server runs.")
		case errors.Is(err, api.ErrSearchFailed):
			lines = append(lines, "hint: the search provider rejected the request; check the server logs.")
		case errors.Is(err, api.ErrNotFound):
			lines = append(lines, "hint: run `topten lists` to see the ids that exist.")
		case !apiErr.FromTopten():
			lines = append(lines, "hint: verify TOPTEN_API_URL points to a topten server.")
		}
		if apiErr.ServerFault() {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase TOPTEN_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a topten server is running at TOPTEN_API_URL.",
			"hint: start local server manually with: topten srv",
			"hint: you can increase TOPTEN_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
