package core

import (
	"errors"
	"fmt"
)

// Ingestion and orchestration failures. Callers wrap these with detail via
// fmt.Errorf("%w: ...") so errors.Is keeps working across layers.
var (
	// ErrUnsupportedFormat is returned for a filename extension no RowSource handles.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileRead is returned when the file bytes cannot be read or decoded.
	ErrFileRead = errors.New("file read error")

	// ErrEmptyFile is returned when a file parses to zero data rows.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoValidRows is returned when every row was dropped during normalization.
	ErrNoValidRows = errors.New("no valid rows")

	// ErrEmptyInput is returned when there is nothing to send to the classifier.
	ErrEmptyInput = errors.New("empty input")

	// ErrTooManyUnits is returned when a prediction request splits into more
	// units than the configured cap.
	ErrTooManyUnits = errors.New("too many units")

	// ErrShapeMismatch is returned when a classifier response cannot be
	// mapped onto the request that produced it.
	ErrShapeMismatch = errors.New("response shape mismatch")

	// ErrResponseTooLarge is returned when a classifier reply exceeds the
	// client's response size cap. The reply is discarded, never truncated.
	ErrResponseTooLarge = errors.New("classifier response too large")
)

// ServiceError is a non-success reply from the classification service.
// Body holds the raw response text for diagnostics.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("classifier service error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("classifier service error: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsServiceError reports whether err carries a ServiceError and returns it.
func IsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
