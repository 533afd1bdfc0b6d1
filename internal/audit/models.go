package audit

import (
	"github.com/validation-portal/portal-client/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type EventType string

const (
	EvtSubmissionStarted   EventType = "submission_started"
	EvtSubmissionSucceeded EventType = "submission_succeeded"
	EvtSubmissionFailed    EventType = "submission_failed"
	EvtReportSaved         EventType = "report_saved"
	EvtReportArchived      EventType = "report_archived"
)

type Message struct {
	Operator      *string     `json:"operator"`
	RequestID     string      `json:"request_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type Artifact struct {
	Name   string `json:"name"   validate:"required"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

type SubmissionStartedEvent struct {
	SBOM                    Artifact           `json:"sbom"                      validate:"required"`
	DataPrep                Artifact           `json:"data_prep"                 validate:"required"`
	PlantReference          string             `json:"plant_reference"`
	ProductionAreaReference string             `json:"production_area_reference"`
	SingleFileAssembly      types.AssemblyFlag `json:"single_file_assembly"      validate:"required"`
	Endpoint                string             `json:"endpoint"                  validate:"required"`
}

type SubmissionStarted struct {
	Event SubmissionStartedEvent `json:"event" validate:"required"`
	Message
}

type SubmissionSucceededEvent struct {
	Filename     string `json:"filename"      validate:"required"`
	ReportSHA256 string `json:"report_sha256" validate:"required"`
	ReportSize   int    `json:"report_size"`
}

type SubmissionSucceeded struct {
	Event SubmissionSucceededEvent `json:"event" validate:"required"`
	Message
}

type SubmissionFailedEvent struct {
	Kind       string `json:"kind"        validate:"required"`
	Message    string `json:"message"     validate:"required"`
	StatusCode *int   `json:"status_code"`
}

type SubmissionFailed struct {
	Event SubmissionFailedEvent `json:"event" validate:"required"`
	Message
}

type ReportSavedEvent struct {
	Path         string `json:"path"          validate:"required"`
	ReportSHA256 string `json:"report_sha256" validate:"required"`
}

type ReportSaved struct {
	Event ReportSavedEvent `json:"event" validate:"required"`
	Message
}

type ReportArchivedEvent struct {
	Store string `json:"store" validate:"required"`
	Key   string `json:"key"   validate:"required"`
}

type ReportArchived struct {
	Event ReportArchivedEvent `json:"event" validate:"required"`
	Message
}
