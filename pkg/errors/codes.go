package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeOK                 ErrorCode = "OK"
	ErrCodeUnknown            ErrorCode = "COMMON_000"
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeTimeout            ErrorCode = "COMMON_005"
	ErrCodeValidation         ErrorCode = "COMMON_006"
	ErrCodeSerialization      ErrorCode = "COMMON_007"
	ErrCodeDatabaseError      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeExternalService    ErrorCode = "COMMON_010"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_011"
)

// Session / workflow error codes.
const (
	ErrCodeSessionNotFound   ErrorCode = "SES_001"
	ErrCodeInvalidTransition ErrorCode = "SES_002"
	ErrCodeSessionBusy       ErrorCode = "SES_003"
	ErrCodeIncompleteSession ErrorCode = "SES_004"
	ErrCodeSessionFailed     ErrorCode = "SES_005"
)

// AI provider (gateway) error codes.
const (
	ErrCodeProviderUnsupported ErrorCode = "AI_001"
	ErrCodeProviderCallFailed  ErrorCode = "AI_002"
	ErrCodeProviderAuthFailed  ErrorCode = "AI_003"
	ErrCodeProviderRateLimited ErrorCode = "AI_004"
	ErrCodeProviderTimeout     ErrorCode = "AI_009"
	ErrCodeProviderEmptyOutput ErrorCode = "AI_010"
)

// Literature source error codes.
const (
	ErrCodeSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeSourceParseError  ErrorCode = "SRC_002"
	ErrCodeSourceUnsupported ErrorCode = "SRC_003"
	ErrCodeCorpusReadFailed  ErrorCode = "SRC_004"
	// ErrCodeSourceEmpty is informational: zero matching documents.  The
	// workflow degrades to the no-literature digest marker instead of failing.
	ErrCodeSourceEmpty ErrorCode = "SRC_005"
)

// Molecule / structure error codes.
const (
	ErrCodeMoleculeInvalidSMILES        ErrorCode = "MOL_001"
	ErrCodeMoleculeParsingFailed        ErrorCode = "MOL_002"
	ErrCodeMoleculeResponseMalformed    ErrorCode = "MOL_003"
	ErrCodeDepictionFailed              ErrorCode = "MOL_004"
	ErrCodeValidatorUnavailable         ErrorCode = "MOL_015"
	ErrCodeStructureGenerationExhausted ErrorCode = "MOL_016"
)

// Document assembly error codes.
const (
	ErrCodeAssemblyFailed     ErrorCode = "DOC_001"
	ErrCodeTemplateError      ErrorCode = "DOC_002"
	ErrCodeUploadInvalidType  ErrorCode = "DOC_003"
	ErrCodeUploadTooLarge     ErrorCode = "DOC_004"
	ErrCodeDocumentStoreError ErrorCode = "DOC_005"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeSessionNotFound:   http.StatusNotFound,
	ErrCodeInvalidTransition: http.StatusConflict,
	ErrCodeSessionBusy:       http.StatusConflict,
	ErrCodeIncompleteSession: http.StatusConflict,
	ErrCodeSessionFailed:     http.StatusUnprocessableEntity,

	ErrCodeProviderUnsupported: http.StatusBadRequest,
	ErrCodeProviderCallFailed:  http.StatusBadGateway,
	ErrCodeProviderAuthFailed:  http.StatusUnauthorized,
	ErrCodeProviderRateLimited: http.StatusTooManyRequests,
	ErrCodeProviderTimeout:     http.StatusGatewayTimeout,
	ErrCodeProviderEmptyOutput: http.StatusBadGateway,

	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeSourceParseError:  http.StatusBadGateway,
	ErrCodeSourceUnsupported: http.StatusBadRequest,
	ErrCodeCorpusReadFailed:  http.StatusInternalServerError,
	ErrCodeSourceEmpty:       http.StatusOK,

	ErrCodeMoleculeInvalidSMILES:        http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed:        http.StatusBadRequest,
	ErrCodeMoleculeResponseMalformed:    http.StatusBadGateway,
	ErrCodeDepictionFailed:              http.StatusInternalServerError,
	ErrCodeValidatorUnavailable:         http.StatusServiceUnavailable,
	ErrCodeStructureGenerationExhausted: http.StatusUnprocessableEntity,

	ErrCodeAssemblyFailed:     http.StatusInternalServerError,
	ErrCodeTemplateError:      http.StatusInternalServerError,
	ErrCodeUploadInvalidType:  http.StatusBadRequest,
	ErrCodeUploadTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeDocumentStoreError: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",

	ErrCodeSessionNotFound:   "research session not found",
	ErrCodeInvalidTransition: "operation not permitted in current session state",
	ErrCodeSessionBusy:       "another transition is in progress for this session",
	ErrCodeIncompleteSession: "session is missing an approved artifact",
	ErrCodeSessionFailed:     "session is in a failed state",

	ErrCodeProviderUnsupported: "unsupported AI provider",
	ErrCodeProviderCallFailed:  "AI provider call failed",
	ErrCodeProviderAuthFailed:  "AI provider rejected the credential",
	ErrCodeProviderRateLimited: "AI provider rate limit exceeded",
	ErrCodeProviderTimeout:     "AI provider call timed out",
	ErrCodeProviderEmptyOutput: "AI provider returned an empty response",

	ErrCodeSourceUnavailable: "literature source unavailable",
	ErrCodeSourceParseError:  "failed to parse literature source response",
	ErrCodeSourceUnsupported: "unsupported literature source",
	ErrCodeCorpusReadFailed:  "failed to read knowledge store",
	ErrCodeSourceEmpty:       "no documents matched the topic",

	ErrCodeMoleculeInvalidSMILES:        "invalid SMILES notation",
	ErrCodeMoleculeParsingFailed:        "failed to parse molecule",
	ErrCodeMoleculeResponseMalformed:    "AI response did not contain a SMILES/NAME pair",
	ErrCodeDepictionFailed:              "failed to render structure depiction",
	ErrCodeValidatorUnavailable:         "molecule validator unavailable",
	ErrCodeStructureGenerationExhausted: "structure generation retry budget exhausted",

	ErrCodeAssemblyFailed:     "document assembly failed",
	ErrCodeTemplateError:      "document template rendering failed",
	ErrCodeUploadInvalidType:  "unsupported file type",
	ErrCodeUploadTooLarge:     "file exceeds maximum size",
	ErrCodeDocumentStoreError: "document storage error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
