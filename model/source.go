package model

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionStatus tracks the lifecycle of a source through the
// extraction pipeline.
type ExtractionStatus string

const (
	ExtractionStatusPending    ExtractionStatus = "PENDING"
	ExtractionStatusProcessing ExtractionStatus = "PROCESSING"
	ExtractionStatusCompleted  ExtractionStatus = "COMPLETED"
	ExtractionStatusFailed     ExtractionStatus = "FAILED"
)

// Source represents an uploaded document that is chunked and fed
// through extraction. Its ID is referenced from entities and
// relationships via source_ids.
type Source struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Content            string           `json:"content,omitempty"`
	ExtractionStatus   ExtractionStatus `json:"extraction_status"`
	ExtractionProgress Metadata         `json:"extraction_progress,omitempty"`
	ExtractionError    *string          `json:"extraction_error,omitempty"`
	UploadedAt         time.Time        `json:"uploaded_at"`
	ProcessedAt        *time.Time       `json:"processed_at,omitempty"`
}
