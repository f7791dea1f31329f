package server

import (
	"net/http"

	"topten/internal/api"
	"topten/internal/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.StoreInfo(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		SchemaVersion:   info.SchemaVersion,
		TotalLists:      info.TotalLists,
		TotalItems:      info.TotalItems,
		ItemsWithImages: info.ItemsWithImages,
		ListsByCategory: info.ListsByCategory,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.PresetCategories())
}
