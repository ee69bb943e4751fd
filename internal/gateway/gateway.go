// Package gateway is the core orchestration layer: every file lifecycle
// operation enters here, already authenticated, and leaves with either a
// result or a classified boundary error. The gateway owns the ordering of
// registry transitions, blob-store presigning, pipeline fan-out, and audit,
// but contains no transport concerns.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/processing"
	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/pkg/apikey"
	"github.com/dmitrymomot/filebox/pkg/id"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

// Service orchestrates the file lifecycle for authenticated callers.
type Service struct {
	files  registry.Store
	broker storage.Broker
	queue  processing.Enqueuer
	audit  *audit.Recorder
	trail  audit.Store
	policy storage.UploadPolicy
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithUploadPolicy sets size and content-type limits for upload requests.
func WithUploadPolicy(p storage.UploadPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithAuditStore enables the read side of the audit trail.
func WithAuditStore(store audit.Store) Option {
	return func(s *Service) { s.trail = store }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires the gateway. Store, broker, queue, and audit recorder
// are required.
func NewService(files registry.Store, broker storage.Broker, queue processing.Enqueuer, rec *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		files:  files,
		broker: broker,
		queue:  queue,
		audit:  rec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadRequest describes a client's intent to upload one file.
type UploadRequest struct {
	Filename    string
	ContentType string
	SizeBytes   int64
	Tags        []string
	Metadata    map[string]string
}

// UploadGrant is the one-time capability to perform the upload.
type UploadGrant struct {
	FileID    uuid.UUID
	Key       string
	UploadURL string
	ExpiresAt time.Time
}

// DownloadGrant is the one-time capability to fetch a file.
type DownloadGrant struct {
	DownloadURL string
	Filename    string
	ExpiresAt   time.Time
}

func (s *Service) authorize(auth *apikey.Context, required apikey.Permission) error {
	if auth == nil {
		return &Error{Kind: KindAuthentication, Message: "missing credentials"}
	}
	if !auth.Permissions.Allows(required) {
		return authorizationErr("permission " + string(required) + " required")
	}
	return nil
}

// RequestUpload validates the declared upload against policy, registers a
// pending file, and returns a presigned PUT capability for its object key.
func (s *Service) RequestUpload(ctx context.Context, auth *apikey.Context, req UploadRequest) (*UploadGrant, error) {
	if err := s.authorize(auth, apikey.PermissionUpload); err != nil {
		return nil, err
	}
	if err := s.policy.ValidateUpload(req.Filename, req.ContentType, req.SizeBytes); err != nil {
		var ve *storage.UploadValidationError
		if errors.As(err, &ve) {
			return nil, &Error{Kind: KindValidation, Message: ve.Message}
		}
		return nil, validationErr("%v", err)
	}

	now := time.Now()
	f := &registry.File{
		ID:             uuid.New(),
		OrganizationID: auth.OrganizationID,
		Bucket:         s.broker.Bucket(),
		OriginalName:   req.Filename,
		ContentType:    req.ContentType,
		SizeBytes:      req.SizeBytes,
		Status:         registry.StatusPendingUpload,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
		UploadedBy:     auth.KeyID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.StorageKey = storage.ObjectKey(auth.OrganizationID.String(), f.ID.String(), req.Filename, req.ContentType)

	if err := s.files.Create(ctx, f); err != nil {
		if errors.Is(err, registry.ErrDuplicateID) {
			return nil, conflictErr("file id collision")
		}
		return nil, internalErr(err)
	}

	signed, err := s.broker.PresignUpload(ctx, f.StorageKey,
		storage.WithContentType(req.ContentType),
		storage.WithContentLength(req.SizeBytes),
	)
	if err != nil {
		// The pending record stays behind; the stale-upload sweep will
		// fail it if the client never retries.
		return nil, internalErr(err)
	}

	corrID := id.NewULID()
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionUploadRequested,
		Actor:          auth.KeyID,
		FileID:         &f.ID,
		CorrelationID:  corrID,
		Details: map[string]any{
			"filename":     req.Filename,
			"content_type": req.ContentType,
			"size_bytes":   req.SizeBytes,
		},
	})

	return &UploadGrant{
		FileID:    f.ID,
		Key:       f.StorageKey,
		UploadURL: signed.URL,
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// ConfirmUpload acknowledges that the client finished its PUT. Exactly one
// of two concurrent confirmations wins the pending_upload -> uploaded swap;
// a caller who finds the file already uploaded resumes the in-flight
// confirmation instead of being rejected, so a fan-out failure can be
// retried. Anything past uploaded reports invalid state. On success the
// pipeline is fanned out and the file moves on to processing.
func (s *Service) ConfirmUpload(ctx context.Context, auth *apikey.Context, fileID uuid.UUID) (*registry.File, error) {
	if err := s.authorize(auth, apikey.PermissionUpload); err != nil {
		return nil, err
	}

	f, err := s.files.Transition(ctx, auth.OrganizationID, fileID, registry.StatusPendingUpload, registry.StatusUploaded)
	if err != nil {
		var se *registry.StateError
		if !errors.As(err, &se) || se.Current != registry.StatusUploaded {
			return nil, classifyTransitionErr(err)
		}
		// An earlier confirm won the swap but its fan-out never
		// finished. Resume it; unique inserts make the repeat a no-op
		// for tasks that did land.
		if f, err = s.files.Get(ctx, auth.OrganizationID, fileID); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return nil, notFoundErr()
			}
			return nil, internalErr(err)
		}
	}

	corrID := id.NewULID()

	payload := processing.Payload{
		FileID:         f.ID,
		OrganizationID: f.OrganizationID,
		Bucket:         f.Bucket,
		Key:            f.StorageKey,
		ContentType:    f.ContentType,
		SizeBytes:      f.SizeBytes,
		UploadedBy:     auth.KeyID,
		CorrelationID:  corrID,
	}
	if err := processing.Fanout(ctx, s.queue, payload); err != nil {
		// The file stays uploaded; a later confirm resumes the fan-out.
		s.logger.ErrorContext(ctx, "pipeline fan-out failed",
			slog.String("file_id", f.ID.String()),
			slog.Any("error", err))
		return nil, internalErr(err)
	}

	f, err = s.files.Transition(ctx, auth.OrganizationID, fileID, registry.StatusUploaded, registry.StatusProcessing)
	if err != nil {
		// Deleted under us, another confirm drove it on, or a very fast
		// pipeline already settled it. The enqueued work is valid either
		// way.
		var se *registry.StateError
		if errors.As(err, &se) {
			return s.files.Get(ctx, auth.OrganizationID, fileID)
		}
		return nil, classifyTransitionErr(err)
	}

	// Recorded by whichever confirm call actually drove the file into
	// processing, so a failed-then-resumed confirm lands one entry.
	s.audit.Record(ctx, audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionUploadConfirmed,
		Actor:          auth.KeyID,
		FileID:         &fileID,
		CorrelationID:  corrID,
	})

	// Workers that finished before the swap above could not settle the
	// file themselves. Close that window here.
	if f.TasksDone(processing.RequiredTasks...) {
		if settled, err := s.files.Transition(ctx, auth.OrganizationID, fileID, registry.StatusProcessing, registry.StatusProcessed); err == nil {
			return settled, nil
		}
	}
	return f, nil
}

// RequestDownload returns a presigned GET capability for a downloadable
// file. Files outside uploaded/processed state never reach the blob store.
func (s *Service) RequestDownload(ctx context.Context, auth *apikey.Context, fileID uuid.UUID) (*DownloadGrant, error) {
	if err := s.authorize(auth, apikey.PermissionRead); err != nil {
		return nil, err
	}

	f, err := s.files.Get(ctx, auth.OrganizationID, fileID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, notFoundErr()
		}
		return nil, internalErr(err)
	}
	if !f.Status.Downloadable() {
		return nil, invalidStateErr(f.Status)
	}

	signed, err := s.broker.PresignDownload(ctx, f.StorageKey,
		storage.WithDownloadName(f.OriginalName))
	if err != nil {
		return nil, internalErr(err)
	}

	s.audit.Record(ctx, audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionDownloadRequested,
		Actor:          auth.KeyID,
		FileID:         &fileID,
		CorrelationID:  id.NewULID(),
	})

	return &DownloadGrant{
		DownloadURL: signed.URL,
		Filename:    f.OriginalName,
		ExpiresAt:   signed.ExpiresAt,
	}, nil
}

// DeleteFile soft-deletes a file. Deleting a file that is already gone,
// cross-tenant, or never existed reports not-found uniformly.
func (s *Service) DeleteFile(ctx context.Context, auth *apikey.Context, fileID uuid.UUID) error {
	if err := s.authorize(auth, apikey.PermissionDelete); err != nil {
		return err
	}

	if err := s.files.SoftDelete(ctx, auth.OrganizationID, fileID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return notFoundErr()
		}
		return internalErr(err)
	}

	s.audit.Record(ctx, audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionFileDeleted,
		Actor:          auth.KeyID,
		FileID:         &fileID,
		CorrelationID:  id.NewULID(),
	})
	return nil
}

// GetFile returns one file record scoped to the caller's organization.
func (s *Service) GetFile(ctx context.Context, auth *apikey.Context, fileID uuid.UUID) (*registry.File, error) {
	if err := s.authorize(auth, apikey.PermissionRead); err != nil {
		return nil, err
	}

	f, err := s.files.Get(ctx, auth.OrganizationID, fileID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, notFoundErr()
		}
		return nil, internalErr(err)
	}
	return f, nil
}

// ListFiles returns the caller's files, newest first, optionally filtered
// by status or tag. Soft-deleted files never appear.
func (s *Service) ListFiles(ctx context.Context, auth *apikey.Context, filter registry.ListFilter) ([]*registry.File, error) {
	if err := s.authorize(auth, apikey.PermissionRead); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, validationErr("unknown status %q", filter.Status)
	}

	files, err := s.files.List(ctx, auth.OrganizationID, filter)
	if err != nil {
		return nil, internalErr(err)
	}
	return files, nil
}

// AuditTrail returns a file's audit entries, oldest first. Requires the
// service to be built with WithAuditStore.
func (s *Service) AuditTrail(ctx context.Context, auth *apikey.Context, fileID uuid.UUID, limit int) ([]*audit.Entry, error) {
	if err := s.authorize(auth, apikey.PermissionRead); err != nil {
		return nil, err
	}
	if s.trail == nil {
		return nil, nil
	}
	entries, err := s.trail.ListByFile(ctx, auth.OrganizationID, fileID, limit)
	if err != nil {
		return nil, internalErr(err)
	}
	return entries, nil
}

func classifyTransitionErr(err error) error {
	var se *registry.StateError
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return notFoundErr()
	case errors.As(err, &se):
		return invalidStateErr(se.Current)
	default:
		return internalErr(err)
	}
}
