package errors

import "fmt"

// ErrorCode classifies an ingestion or query failure.
type ErrorCode string

const (
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE" // root missing or unreadable, skipped
	ErrMalformedLine     ErrorCode = "MALFORMED_LINE"     // structured-log line skipped
	ErrUnparsableSegment ErrorCode = "UNPARSABLE_SEGMENT" // binary candidate discarded
	ErrOversizedFile     ErrorCode = "OVERSIZED_FILE"     // binary file sampled, session partial
	ErrReadFailed        ErrorCode = "READ_FAILED"        // single file could not be read
	ErrRebuildFailure    ErrorCode = "REBUILD_FAILURE"    // every configured source failed
	ErrNoSources         ErrorCode = "NO_SOURCES"         // no readable root at startup
	ErrBudgetExceeded    ErrorCode = "BUDGET_EXCEEDED"    // rebuild time budget ran out
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"
)

// IngestError is a structured error carrying a code and the offending location.
type IngestError struct {
	Code    ErrorCode
	Path    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, loc, msg)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewSourceUnavailable reports a root that could not be walked.
func NewSourceUnavailable(root string, err error) *IngestError {
	return &IngestError{
		Code:    ErrSourceUnavailable,
		Path:    root,
		Message: "source root unavailable",
		Err:     err,
	}
}

// NewMalformedLine reports a structured-log line that failed to decode.
func NewMalformedLine(path string, line int, err error) *IngestError {
	return &IngestError{
		Code:    ErrMalformedLine,
		Path:    path,
		Line:    line,
		Message: "malformed line",
		Err:     err,
	}
}

// NewUnparsableSegment reports a binary candidate that failed validation.
func NewUnparsableSegment(offset int64, err error) *IngestError {
	return &IngestError{
		Code:    ErrUnparsableSegment,
		Message: fmt.Sprintf("candidate at offset %d", offset),
		Err:     err,
	}
}

// NewOversizedFile reports a binary file that exceeded the read bound.
func NewOversizedFile(path string, size, max int64) *IngestError {
	return &IngestError{
		Code:    ErrOversizedFile,
		Path:    path,
		Message: fmt.Sprintf("%d bytes exceeds bound of %d, sampled head and tail", size, max),
	}
}

// NewReadFailed reports a file that could not be opened or read.
func NewReadFailed(path string, err error) *IngestError {
	return &IngestError{
		Code:    ErrReadFailed,
		Path:    path,
		Message: "read failed",
		Err:     err,
	}
}

// NewRebuildFailure reports that every configured source failed.
func NewRebuildFailure(roots int) *IngestError {
	return &IngestError{
		Code:    ErrRebuildFailure,
		Message: fmt.Sprintf("all %d configured source roots failed", roots),
	}
}

// NewNoSources reports that no configured root is readable.
func NewNoSources(roots []string) *IngestError {
	return &IngestError{
		Code:    ErrNoSources,
		Message: fmt.Sprintf("no readable session roots among %v; set cli_roots/desktop_roots in the config file or CLAUDE_SESSIONS_DIR", roots),
	}
}

// NewBudgetExceeded reports sources left unscanned when the rebuild budget ran out.
func NewBudgetExceeded(remaining int) *IngestError {
	return &IngestError{
		Code:    ErrBudgetExceeded,
		Message: fmt.Sprintf("rebuild budget exhausted, %d files not scanned", remaining),
	}
}

// NewNotFound reports a session id missing from the snapshot.
func NewNotFound(id string) *IngestError {
	return &IngestError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("session not found: %s", id),
	}
}

// NewInvalidRequest reports a bad filter or parameter.
func NewInvalidRequest(msg string) *IngestError {
	return &IngestError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// Is checks if err, or any error it wraps, is an IngestError with the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if iErr, ok := err.(*IngestError); ok && iErr.Code == code {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
