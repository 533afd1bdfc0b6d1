package portal

import (
	"errors"
	"fmt"
)

var (
	ErrMissingArtifact = errors.New("both files required")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
	ErrNoReport        = errors.New("no report to download")
	ErrUnknownField    = errors.New("unknown parameter field")
)

const genericServiceMessage = "An error occurred during validation"

// Candidate rejected by the type predicate of its slot
type UnsupportedArtifactError struct {
	Name string
	Slot Slot
}

func (e *UnsupportedArtifactError) Error() string {
	switch e.Slot {
	case SlotSBOM:
		return "Please upload an XML file for SBOM"
	case SlotDataPrep:
		return "Please upload an Excel file (.xlsx) for data preparation"
	default:
		return fmt.Sprintf("unsupported file %s", e.Name)
	}
}

// Failure response carrying a structured message, surfaced verbatim
type ServiceError struct {
	Message    string
	StatusCode int
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Request failed below HTTP or the failure body was not usable
type TransportError struct {
	Err error
	// zero when no response was received
	StatusCode int
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Short machine readable name of an error kind, used in audit events and metrics
func Kind(err error) string {
	var (
		unsupported *UnsupportedArtifactError
		service     *ServiceError
		transport   *TransportError
	)

	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingArtifact):
		return "missing_artifact"
	case errors.As(err, &unsupported):
		return "unsupported_artifact"
	case errors.As(err, &service):
		return "service"
	case errors.As(err, &transport):
		return "transport"
	default:
		return "unknown"
	}
}
