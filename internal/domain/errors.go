package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeUnsupportedFormat   = "UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed    = "EXTRACTION_FAILED"
	ErrCodeInsufficientContent = "INSUFFICIENT_CONTENT"
	ErrCodeChunkingFailed      = "CHUNKING_FAILED"
	ErrCodeEmbeddingFailed     = "EMBEDDING_FAILED"
	ErrCodeDimensionMismatch   = "DIMENSION_MISMATCH"
	ErrCodeProcessingFailed    = "PROCESSING_FAILED"
)

// Validation errors
var (
	ErrInvalidJobStatus     = NewDomainError(ErrCodeValidation, "invalid processing job status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidEmbedding     = NewDomainError(ErrCodeValidation, "embedding vector does not match declared dimensions")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrJobNotFound      = NewDomainError(ErrCodeNotFound, "processing job not found")
	ErrUploadNotFound   = NewDomainError(ErrCodeNotFound, "uploaded file not found")
)

// Already exists errors
var (
	ErrDocumentAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "document already exists")
)

// Pipeline stage errors
var (
	ErrUnsupportedFormat   = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrInsufficientContent = NewDomainError(ErrCodeInsufficientContent, "extracted text too short to index")
	ErrEmptyChunkSet       = NewDomainError(ErrCodeEmbeddingFailed, "no chunks to embed")
	ErrDimensionMismatch   = NewDomainError(ErrCodeDimensionMismatch, "vector dimensions do not match")
)

// State machine errors
var (
	ErrTerminalJob          = NewDomainError(ErrCodeInvalidTransition, "processing job is already terminal")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidTransition, "illegal job status transition")
	ErrProgressRegression   = NewDomainError(ErrCodeInvalidTransition, "job progress cannot decrease")
	ErrObjectAlreadyFreed   = NewDomainError(ErrCodeInvalidTransition, "uploaded object already marked deleted")
	ErrObjectNotDeletable   = NewDomainError(ErrCodeInvalidTransition, "uploaded object can only be released after a terminal status")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
