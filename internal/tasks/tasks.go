package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeBuildReport    = "report:build"
	TypeIngestDocument = "document:ingest"
)

// BuildReportPayload carries the report row the worker should fill in
type BuildReportPayload struct {
	ReportID string `json:"report_id"`
	UserID   string `json:"user_id"`
}

// IngestDocumentPayload carries the document the worker should forward
// to the RAG service
type IngestDocumentPayload struct {
	DocumentID string `json:"document_id"`
}

// NewBuildReportTask creates a task to aggregate a user's predictions into a report
func NewBuildReportTask(reportID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(BuildReportPayload{
		ReportID: reportID,
		UserID:   userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeBuildReport, payload), nil
}

// NewIngestDocumentTask creates a task to push an uploaded document into the knowledge base
func NewIngestDocumentTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestDocumentPayload{
		DocumentID: documentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeIngestDocument, payload), nil
}

// ParseBuildReportPayload parses a report build payload from an Asynq task
func ParseBuildReportPayload(task *asynq.Task) (BuildReportPayload, error) {
	var payload BuildReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// ParseIngestDocumentPayload parses a document ingestion payload from an Asynq task
func ParseIngestDocumentPayload(task *asynq.Task) (IngestDocumentPayload, error) {
	var payload IngestDocumentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
