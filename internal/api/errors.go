package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Numeric error codes the server puts in ErrorResponse.ErrorCode.
const (
	codeMalformedSubmission = 1001
	codeRequestTooLarge     = 1002
	codeListNotFound        = 2001
	codeAssetNotFound       = 2002
	codeResourceExhausted   = 3003
	codeSearchUnavailable   = 4004
	codeSearchFailed        = 4005
)

// Sentinels matched by errors.Is against an *APIError.
var (
	ErrMalformedSubmission = errors.New("malformed submission")
	ErrRequestTooLarge     = errors.New("request too large")
	ErrNotFound            = errors.New("not found")
	ErrBusy                = errors.New("server busy")
	ErrSearchUnavailable   = errors.New("search unavailable")
	ErrSearchFailed        = errors.New("search failed")
)

// APIError is a non-2xx response from a topten server. Code and ErrorCode
// are empty when the body was not a topten error document.
type APIError struct {
	Status    int
	Code      string
	ErrorCode int
	Message   string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = "request failed"
	}
	switch {
	case e.Code != "" && e.ErrorCode > 0:
		return fmt.Sprintf("%s [%d]: %s", e.Code, e.ErrorCode, msg)
	case e.Code != "":
		return fmt.Sprintf("%s: %s", e.Code, msg)
	case e.Status > 0:
		return fmt.Sprintf("http %d: %s", e.Status, msg)
	}
	return msg
}

// FromTopten reports whether the response carried a topten error document.
func (e *APIError) FromTopten() bool {
	return e != nil && (e.Code != "" || e.ErrorCode > 0)
}

// Is matches the package sentinels. The numeric code decides when present;
// otherwise the HTTP status does.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if e.ErrorCode > 0 {
		switch target {
		case ErrMalformedSubmission:
			return e.ErrorCode == codeMalformedSubmission
		case ErrRequestTooLarge:
			return e.ErrorCode == codeRequestTooLarge
		case ErrNotFound:
			return e.ErrorCode == codeListNotFound || e.ErrorCode == codeAssetNotFound
		case ErrBusy:
			return e.ErrorCode == codeResourceExhausted
		case ErrSearchUnavailable:
			return e.ErrorCode == codeSearchUnavailable
		case ErrSearchFailed:
			return e.ErrorCode == codeSearchFailed
		}
		return false
	}
	switch target {
	case ErrRequestTooLarge:
		return e.Status == http.StatusRequestEntityTooLarge
	case ErrNotFound:
		return e.Status == http.StatusNotFound && e.FromTopten()
	case ErrBusy:
		return e.Status == http.StatusTooManyRequests || e.Code == "resource_exhausted"
	case ErrSearchUnavailable:
		return e.Status == http.StatusServiceUnavailable
	case ErrSearchFailed:
		return e.Status == http.StatusBadGateway
	}
	return false
}

// ServerFault reports a 5xx that is not a search provider problem.
func (e *APIError) ServerFault() bool {
	if e == nil || e.Status < 500 {
		return false
	}
	return !errors.Is(e, ErrSearchUnavailable) && !errors.Is(e, ErrSearchFailed)
}
