package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument     = 1000
	ErrCodeMalformedSubmission = 1001
	ErrCodeRequestTooLarge     = 1002
	ErrCodeInvalidQuery        = 1003
	ErrCodeInvalidID           = 1004
	ErrCodeMissingRequired     = 1005

	// Domain state (2xxx)
	ErrCodeListNotFound  = 2001
	ErrCodeAssetNotFound = 2002

	// Limits (3xxx)
	ErrCodeResourceExhausted = 3003

	// Internal/system (4xxx)
	ErrCodeInternal           = 4001
	ErrCodeStoreFailure       = 4002
	ErrCodePersistenceFailure = 4003
	ErrCodeSearchUnavailable  = 4004
	ErrCodeSearchFailed       = 4005
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeListNotFound
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	case 502:
		return ErrCodeSearchFailed
	case 503:
		return ErrCodeSearchUnavailable
	default:
		return 0
	}
}
