package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"topten/internal/api"
	"topten/internal/search"
)

const (
	searchFailedMessage      = "search provider request failed"
	searchUnavailableMessage = "search is not configured"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !s.search.Configured() {
		s.writeSearchFailure(w, r, http.StatusServiceUnavailable, searchUnavailableMessage, search.ErrNotConfigured)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("q is required"), ErrCodeMissingRequired))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.withLimiter(w, r, s.searchLimiter, "search", func() {
		resp, err := s.search.Search(r.Context(), search.Query{
			Text:     query,
			Type:     r.URL.Query().Get("type"),
			Limit:    limit,
			Language: r.URL.Query().Get("lang"),
		})
		if err != nil {
			s.writeSearchFailure(w, r, http.StatusBadGateway, searchFailedMessage, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.SearchResponse{Results: resp.Results})
	})
}

// writeSearchFailure keeps the search response shape so clients can render
// an empty result set.
func (s *Server) writeSearchFailure(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	fields := []any{"status", status, "error", err, "request_id", requestIDFromContext(r.Context())}
	var perr *search.ProviderError
	if errors.As(err, &perr) && perr.StatusCode > 0 {
		fields = append(fields, "provider_status", perr.StatusCode)
	}
	s.log().Warn("search failed", fields...)
	s.writeJSON(w, status, api.SearchResponse{Error: message, Results: []json.RawMessage{}})
}
