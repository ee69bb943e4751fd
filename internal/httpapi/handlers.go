package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/gateway"
	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/internal/tenant"
	"github.com/dmitrymomot/filebox/pkg/apikey"
)

type fileResponse struct {
	ID            uuid.UUID         `json:"id"`
	Status        string            `json:"status"`
	OriginalName  string            `json:"original_name"`
	ContentType   string            `json:"content_type"`
	SizeBytes     int64             `json:"size_bytes"`
	Checksum      *string           `json:"checksum,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Valid         *bool             `json:"valid,omitempty"`
	ThumbnailKey  *string           `json:"thumbnail_key,omitempty"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	UploadedBy    uuid.UUID         `json:"uploaded_by"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toFileResponse(f *registry.File) fileResponse {
	return fileResponse{
		ID:            f.ID,
		Status:        string(f.Status),
		OriginalName:  f.OriginalName,
		ContentType:   f.ContentType,
		SizeBytes:     f.SizeBytes,
		Checksum:      f.Checksum,
		Tags:          f.Tags,
		Metadata:      f.Metadata,
		Valid:         f.Valid,
		ThumbnailKey:  f.ThumbnailKey,
		FailureReason: f.FailureReason,
		UploadedBy:    f.UploadedBy,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorCode(w, http.StatusBadRequest, string(gateway.KindValidation), "malformed request body")
		return false
	}
	return true
}

func fileIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, string(gateway.KindValidation), "invalid file id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	org, key, secret, err := s.tenants.CreateOrganization(r.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidName):
			writeErrorCode(w, http.StatusBadRequest, string(gateway.KindValidation), "invalid organization name")
		case errors.Is(err, tenant.ErrDuplicateName):
			writeErrorCode(w, http.StatusConflict, string(gateway.KindConflict), "organization name already exists")
		default:
			s.writeError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"organization": map[string]any{
			"id":         org.ID,
			"name":       org.Name,
			"created_at": org.CreatedAt,
		},
		"api_key": keyResponse(key),
		// The secret is shown exactly once and never retrievable again.
		"secret": secret,
	})
}

func (s *Server) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename    string            `json:"filename"`
		ContentType string            `json:"content_type"`
		SizeBytes   int64             `json:"size_bytes"`
		Tags        []string          `json:"tags"`
		Metadata    map[string]string `json:"metadata"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	grant, err := s.gateway.RequestUpload(r.Context(), authFromContext(r.Context()), gateway.UploadRequest{
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"file_id":    grant.FileID,
		"key":        grant.Key,
		"upload_url": grant.UploadURL,
		"expires_at": grant.ExpiresAt,
	})
}

func (s *Server) handleConfirmUpload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	f, err := s.gateway.ConfirmUpload(r.Context(), authFromContext(r.Context()), fileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f))
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	f, err := s.gateway.GetFile(r.Context(), authFromContext(r.Context()), fileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(f))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := registry.ListFilter{
		Status: registry.Status(q.Get("status")),
		Tag:    q.Get("tag"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	files, err := s.gateway.ListFiles(r.Context(), authFromContext(r.Context()), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out})
}

func (s *Server) handleRequestDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	grant, err := s.gateway.RequestDownload(r.Context(), authFromContext(r.Context()), fileID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"download_url": grant.DownloadURL,
		"filename":     grant.Filename,
		"expires_at":   grant.ExpiresAt,
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}

	if err := s.gateway.DeleteFile(r.Context(), authFromContext(r.Context()), fileID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDParam(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.gateway.AuditTrail(r.Context(), authFromContext(r.Context()), fileID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	type entryResponse struct {
		ID            uuid.UUID      `json:"id"`
		Action        string         `json:"action"`
		Actor         uuid.UUID      `json:"actor"`
		CorrelationID string         `json:"correlation_id,omitempty"`
		Details       map[string]any `json:"details,omitempty"`
		CreatedAt     time.Time      `json:"created_at"`
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:            e.ID,
			Action:        string(e.Action),
			Actor:         e.Actor,
			CorrelationID: e.CorrelationID,
			Details:       e.Details,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func keyResponse(k *apikey.Key) map[string]any {
	return map[string]any{
		"id":           k.ID,
		"prefix":       k.Prefix,
		"name":         k.Name,
		"permissions":  k.Permissions.Strings(),
		"expires_at":   k.ExpiresAt,
		"last_used_at": k.LastUsedAt,
		"created_at":   k.CreatedAt,
	}
}

// requireAdmin gates key management and queue observability.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) *apikey.Context {
	auth := authFromContext(r.Context())
	if auth == nil {
		writeErrorCode(w, http.StatusUnauthorized, string(gateway.KindAuthentication), "missing credentials")
		return nil
	}
	if !auth.Permissions.Allows(apikey.PermissionAdmin) {
		writeErrorCode(w, http.StatusForbidden, string(gateway.KindAuthorization), "admin permission required")
		return nil
	}
	return auth
}

func (s *Server) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	auth := s.requireAdmin(w, r)
	if auth == nil {
		return
	}

	var req struct {
		Name        string     `json:"name"`
		Permissions []string   `json:"permissions"`
		ExpiresAt   *time.Time `json:"expires_at"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}

	key, secret, err := s.keys.CreateKey(r.Context(), auth.OrganizationID, req.Name, apikey.PermissionsFromStrings(req.Permissions), req.ExpiresAt)
	if err != nil {
		if errors.Is(err, apikey.ErrInvalidPermission) {
			writeErrorCode(w, http.StatusBadRequest, string(gateway.KindValidation), "unknown permission")
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionKeyCreated,
		Actor:          auth.KeyID,
		Details:        map[string]any{"key_id": key.ID.String(), "name": key.Name},
	})

	resp := keyResponse(key)
	resp["secret"] = secret
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	auth := s.requireAdmin(w, r)
	if auth == nil {
		return
	}

	keys, err := s.keys.ListKeys(r.Context(), auth.OrganizationID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyResponse(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	auth := s.requireAdmin(w, r)
	if auth == nil {
		return
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, string(gateway.KindValidation), "invalid key id")
		return
	}

	if err := s.keys.Revoke(r.Context(), auth.OrganizationID, keyID); err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			writeErrorCode(w, http.StatusNotFound, string(gateway.KindNotFound), "key not found")
			return
		}
		s.writeError(w, r, err)
		return
	}

	s.audit.Record(r.Context(), audit.Entry{
		OrganizationID: auth.OrganizationID,
		Action:         audit.ActionKeyRevoked,
		Actor:          auth.KeyID,
		Details:        map[string]any{"key_id": keyID.String()},
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	if s.queue == nil {
		writeErrorCode(w, http.StatusNotFound, string(gateway.KindNotFound), "queue stats unavailable")
		return
	}

	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
