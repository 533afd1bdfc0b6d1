package types

import "time"

type (
	// Previously generated report as listed by the service
	ReportSummary struct {
		SBOMURL     *string   `json:"sbom_url"`
		DataPrepURL *string   `json:"dpf_url"`
		ContentURL  *string   `json:"content_url"`
		Username    string    `json:"username"`
		CreatedAt   time.Time `json:"created_at"`
		ID          int64     `json:"id"`
	}
)
