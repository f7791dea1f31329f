package ingest

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrMalformedSubmission marks a request whose structure cannot be decoded.
// Nothing is written for a malformed submission.
var ErrMalformedSubmission = errors.New("malformed submission")

// Submission is one decoded list submission.
type Submission struct {
	Title    string
	Category string
	Items    []ItemPayload
}

// ItemPayload is one decoded item descriptor plus its optional upload.
type ItemPayload struct {
	ClientID    string
	Title       string
	Description string
	Position    int
	ImageURL    *string
	ExternalURL *string
	Upload      *Upload
}

// Upload is an uploaded image file awaiting storage.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Present reports whether the upload carries content. An empty upload never
// overrides a supplied image URL.
func (u *Upload) Present() bool {
	return u != nil && u.Size > 0 && u.Open != nil
}

// UploadFromFileHeader wraps a multipart file part.
func UploadFromFileHeader(fh *multipart.FileHeader) *Upload {
	if fh == nil {
		return nil
	}
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// PersistenceError reports a failed list transaction. Nothing from the
// submission is visible to readers when it is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSubmission, fmt.Sprintf(format, args...))
}
