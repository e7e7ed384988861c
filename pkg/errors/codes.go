package errors

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeCacheError         ErrorCode = "COMMON_009"
	ErrCodeNotImplemented     ErrorCode = "COMMON_010"
)

// Matching Engine Error Codes
const (
	ErrCodeBatchAborted      ErrorCode = "MATCH_001"
	ErrCodeSnapshotNotFound  ErrorCode = "MATCH_002"
	ErrCodeFeedbackMalformed ErrorCode = "MATCH_003"
)

// CodeOK is the sentinel code returned by GetCode for a nil error.
const CodeOK = ErrorCode("OK")

// CodeUnknown is returned when no *AppError is present in an error chain.
const CodeUnknown = ErrorCode("UNKNOWN")
