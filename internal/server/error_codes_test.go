package server

import (
	"errors"
	"testing"

	"topten/internal/api"
)

func TestErrorCodesClassifyOnClient(t *testing.T) {
	tests := []struct {
		status int
		code   int
		target error
	}{
		{400, ErrCodeMalformedSubmission, api.ErrMalformedSubmission},
		{413, ErrCodeRequestTooLarge, api.ErrRequestTooLarge},
		{404, ErrCodeListNotFound, api.ErrNotFound},
		{404, ErrCodeAssetNotFound, api.ErrNotFound},
		{429, ErrCodeResourceExhausted, api.ErrBusy},
		{503, ErrCodeSearchUnavailable, api.ErrSearchUnavailable},
		{502, ErrCodeSearchFailed, api.ErrSearchFailed},
	}
	for _, tt := range tests {
		err := &api.APIError{Status: tt.status, Code: errorCode(tt.status, nil), ErrorCode: tt.code}
		if !errors.Is(err, tt.target) {
			t.Fatalf("code %d not classified as %v", tt.code, tt.target)
		}
	}

	for _, status := range []int{502, 503} {
		err := &api.APIError{Status: status, ErrorCode: defaultErrorCodeByStatus(status)}
		if err.ServerFault() {
			t.Fatalf("status %d should not read as a server fault", status)
		}
	}
}
