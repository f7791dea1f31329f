package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/categories", s.handleCategories)

	// Lists.
	mux.HandleFunc("POST /api/new", s.handleCreateList)
	mux.HandleFunc("GET /api/lists", s.handleListLists)
	mux.HandleFunc("GET /api/lists/{id}", s.handleGetList)

	// Entity search proxy.
	mux.HandleFunc("GET /api/search", s.handleSearch)

	// Stored images.
	if s.serveAssets {
		mux.HandleFunc("GET /assets/{key...}", s.handleAsset)
	}

	return mux
}
