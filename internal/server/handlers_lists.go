package server

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"topten/internal/api"
	"topten/internal/ingest"
)

const listCreatedMessage = "List created"

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		s.writeServiceError(w, r, internalError(fmt.Errorf("ingestion is not configured")))
		return
	}

	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		form, err := s.parseSubmissionForm(w, r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		defer func() { _ = form.RemoveAll() }()

		sub, err := ingest.ParseSubmission(form)
		if err != nil {
			s.writeServiceError(w, r, badRequestCode(err, ErrCodeMalformedSubmission))
			return
		}

		res, err := s.ingest.Submit(r.Context(), sub)
		if err != nil {
			s.writeServiceError(w, r, classifySubmitError(err))
			return
		}

		s.log().Info("list submitted",
			"list_id", res.ListID,
			"items", len(res.Items),
			"image_failures", res.ImageFailures,
			"request_id", requestIDFromContext(r.Context()),
		)
		s.writeJSON(w, http.StatusOK, api.CreateListResponse{Message: listCreatedMessage, ID: res.ListID})
	})
}

// parseSubmissionForm reads a multipart body, or a urlencoded one for
// submissions without images.
func (s *Server) parseSubmissionForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	err := r.ParseMultipartForm(s.multipartMaxMemory)
	switch {
	case err == nil:
		return r.MultipartForm, nil
	case errors.Is(err, http.ErrNotMultipart) && isURLEncodedForm(r):
		return &multipart.Form{Value: r.PostForm}, nil
	default:
		return nil, classifyMultipartError(err)
	}
}

func isURLEncodedForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func classifySubmitError(err error) error {
	var perr *ingest.PersistenceError
	switch {
	case errors.Is(err, ingest.ErrMalformedSubmission):
		return badRequestCode(err, ErrCodeMalformedSubmission)
	case errors.As(err, &perr):
		return persistenceFailure(err)
	default:
		return internalError(err)
	}
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return badRequestCode(fmt.Errorf("%w: expected multipart/form-data", ingest.ErrMalformedSubmission), ErrCodeMalformedSubmission)
	}
	return badRequest(err)
}

func (s *Server) handleListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.ListLists(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	id, err := requirePathListID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	list, err := s.store.GetList(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if list == nil {
		s.writeServiceError(w, r, notFoundCode(fmt.Errorf("list not found"), ErrCodeListNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}
