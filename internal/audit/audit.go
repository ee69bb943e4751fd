// Package audit keeps an append-only record of every state-affecting action.
// Entries are observational: nothing reads them to make a decision, and a
// failed write never fails the operation it accompanies.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened. Values are stable machine codes.
type Action string

const (
	ActionUploadRequested     Action = "UPLOAD_REQUESTED"
	ActionUploadConfirmed     Action = "UPLOAD_CONFIRMED"
	ActionDownloadRequested   Action = "DOWNLOAD_REQUESTED"
	ActionFileDeleted         Action = "FILE_DELETED"
	ActionProcessingCompleted Action = "PROCESSING_COMPLETED"
	ActionProcessingFailed    Action = "PROCESSING_FAILED"
	ActionKeyCreated          Action = "KEY_CREATED"
	ActionKeyRevoked          Action = "KEY_REVOKED"
	ActionOrgCreated          Action = "ORG_CREATED"
)

// Entry is an immutable audit fact. Actor is the API key that performed the
// action; pipeline workers record the key that originally uploaded the file.
type Entry struct {
	ID             uuid.UUID
	FileID         *uuid.UUID
	OrganizationID uuid.UUID
	Action         Action
	Actor          uuid.UUID
	CorrelationID  string
	Details        map[string]any
	CreatedAt      time.Time
}

// Store persists audit entries. Append-only: there is no update or delete.
type Store interface {
	Append(ctx context.Context, e *Entry) error

	// ListByFile returns a file's audit trail, oldest first.
	ListByFile(ctx context.Context, orgID, fileID uuid.UUID, limit int) ([]*Entry, error)
}
