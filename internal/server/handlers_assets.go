package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"topten/internal/blobstore"
)

// handleAsset streams a stored image. Object keys embed a content digest, so
// responses are cacheable indefinitely.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	obj, err := s.blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeServiceError(w, r, notFoundCode(fmt.Errorf("asset not found"), ErrCodeAssetNotFound))
			return
		}
		if isInvalidKey(err) {
			s.writeServiceError(w, r, badRequest(err))
			return
		}
		s.writeServiceError(w, r, internalError(err))
		return
	}
	defer obj.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if obj.SizeBytes >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		s.log().Warn("stream asset", "key", key, "error", err)
	}
}

func isInvalidKey(err error) bool {
	return errors.Is(err, blobstore.ErrInvalidKey)
}
