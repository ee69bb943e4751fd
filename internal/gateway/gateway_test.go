package gateway_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/gateway"
	"github.com/dmitrymomot/filebox/internal/processing"
	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/pkg/apikey"
	"github.com/dmitrymomot/filebox/pkg/job"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

type fakeObject struct {
	data        []byte
	contentType string
}

// fakeBroker is an in-memory storage.Broker that counts presign calls so
// tests can assert an ineligible download never reaches the blob store.
type fakeBroker struct {
	mu            sync.Mutex
	objects       map[string]fakeObject
	uploadSigns   int
	downloadSigns int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{objects: make(map[string]fakeObject)}
}

func (b *fakeBroker) put(key string, data []byte, contentType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = fakeObject{data: data, contentType: contentType}
}

func (b *fakeBroker) downloadSignCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.downloadSigns
}

func (b *fakeBroker) PresignUpload(_ context.Context, key string, _ ...storage.UploadURLOption) (*storage.SignedURL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadSigns++
	return &storage.SignedURL{
		URL:       "https://blob.test/put/" + key,
		Method:    "PUT",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (b *fakeBroker) PresignDownload(_ context.Context, key string, _ ...storage.DownloadURLOption) (*storage.SignedURL, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloadSigns++
	return &storage.SignedURL{
		URL:       "https://blob.test/get/" + key,
		Method:    "GET",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (b *fakeBroker) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Key: key, ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (b *fakeBroker) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (b *fakeBroker) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.put(key, data, contentType)
	return nil
}

func (b *fakeBroker) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *fakeBroker) Bucket() string { return "test-bucket" }

// recordingQueue captures fan-out without executing anything. Repeated
// inserts for the same file and task collapse, the way unique inserts do
// in the real queue.
type recordingQueue struct {
	mu    sync.Mutex
	names []string
	seen  map[string]bool
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, name string, payload any, _ ...job.EnqueueOption) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	if p, ok := payload.(processing.Payload); ok {
		if q.seen == nil {
			q.seen = make(map[string]bool)
		}
		key := p.FileID.String() + ":" + name
		if q.seen[key] {
			return nil
		}
		q.seen[key] = true
	}
	q.names = append(q.names, name)
	return nil
}

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.names...)
}

func (q *recordingQueue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// inlineQueue runs pipeline handlers synchronously, standing in for the
// worker pool in end-to-end tests.
type inlineQueue struct {
	deps processing.Deps
}

func (q *inlineQueue) Enqueue(ctx context.Context, name string, payload any, _ ...job.EnqueueOption) error {
	p, ok := payload.(processing.Payload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", payload)
	}
	switch name {
	case processing.TaskValidate:
		return (&processing.ValidateTask{Deps: q.deps}).Handle(ctx, p)
	case processing.TaskChecksum:
		return (&processing.ChecksumTask{Deps: q.deps}).Handle(ctx, p)
	case processing.TaskMetadata:
		return (&processing.MetadataTask{Deps: q.deps}).Handle(ctx, p)
	case processing.TaskThumbnail:
		return (&processing.ThumbnailTask{Deps: q.deps}).Handle(ctx, p)
	default:
		return fmt.Errorf("unknown task %s", name)
	}
}

type fixture struct {
	svc     *gateway.Service
	files   *registry.MemoryStore
	broker  *fakeBroker
	entries *audit.MemoryStore
	rec     *audit.Recorder
}

var testPolicy = storage.UploadPolicy{
	MaxFileSize:  10 << 20,
	AllowedTypes: []string{"application/pdf", "image/*", "text/plain"},
}

func newFixture(t *testing.T, queue processing.Enqueuer) *fixture {
	t.Helper()

	files := registry.NewMemoryStore()
	broker := newFakeBroker()
	entries := audit.NewMemoryStore()
	rec := audit.NewRecorder(entries)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rec.Close(ctx)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if iq, ok := queue.(*inlineQueue); ok {
		iq.deps = processing.Deps{Files: files, Broker: broker, Audit: rec, Logger: logger}
	}

	svc := gateway.NewService(files, broker, queue, rec,
		gateway.WithUploadPolicy(testPolicy),
		gateway.WithAuditStore(entries),
		gateway.WithLogger(logger),
	)
	return &fixture{svc: svc, files: files, broker: broker, entries: entries, rec: rec}
}

func authCtx(perms ...apikey.Permission) *apikey.Context {
	return &apikey.Context{
		OrganizationID: uuid.New(),
		KeyID:          uuid.New(),
		Permissions:    apikey.Permissions(perms),
	}
}

func kindOf(t *testing.T, err error) gateway.Kind {
	t.Helper()
	require.Error(t, err)
	return gateway.KindOf(err)
}

func TestRequestUpload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("grants a scoped upload capability", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		auth := authCtx(apikey.PermissionUpload)

		grant, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
			Filename:    "report.pdf",
			ContentType: "application/pdf",
			SizeBytes:   1200,
			Tags:        []string{"reports"},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, grant.FileID)
		assert.Contains(t, grant.Key, auth.OrganizationID.String())
		assert.Contains(t, grant.UploadURL, grant.Key)
		assert.False(t, grant.ExpiresAt.IsZero())

		f, err := fx.files.Get(ctx, auth.OrganizationID, grant.FileID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusPendingUpload, f.Status)
		assert.Equal(t, auth.KeyID, f.UploadedBy)
		assert.Equal(t, []string{"reports"}, f.Tags)
	})

	t.Run("rejects out-of-policy uploads", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		auth := authCtx(apikey.PermissionUpload)

		tests := []struct {
			name string
			req  gateway.UploadRequest
		}{
			{"oversize", gateway.UploadRequest{Filename: "big.pdf", ContentType: "application/pdf", SizeBytes: 11 << 20}},
			{"empty", gateway.UploadRequest{Filename: "empty.pdf", ContentType: "application/pdf", SizeBytes: 0}},
			{"disallowed type", gateway.UploadRequest{Filename: "app.exe", ContentType: "application/octet-stream", SizeBytes: 100}},
			{"no filename", gateway.UploadRequest{ContentType: "application/pdf", SizeBytes: 100}},
		}
		for _, tt := range tests {
			_, err := fx.svc.RequestUpload(ctx, auth, tt.req)
			assert.Equal(t, gateway.KindValidation, kindOf(t, err), tt.name)
		}
	})

	t.Run("requires the upload permission", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		_, err := fx.svc.RequestUpload(ctx, authCtx(apikey.PermissionRead), gateway.UploadRequest{
			Filename: "report.pdf", ContentType: "application/pdf", SizeBytes: 100,
		})
		assert.Equal(t, gateway.KindAuthorization, kindOf(t, err))

		_, err = fx.svc.RequestUpload(ctx, nil, gateway.UploadRequest{
			Filename: "report.pdf", ContentType: "application/pdf", SizeBytes: 100,
		})
		assert.Equal(t, gateway.KindAuthentication, kindOf(t, err))
	})
}

func TestConfirmUpload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	seed := func(t *testing.T, fx *fixture, auth *apikey.Context) *gateway.UploadGrant {
		t.Helper()
		grant, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
			Filename: "report.pdf", ContentType: "application/pdf", SizeBytes: 5,
		})
		require.NoError(t, err)
		fx.broker.put(grant.Key, []byte("12345"), "application/pdf")
		return grant
	}

	t.Run("fans out the pipeline once", func(t *testing.T) {
		t.Parallel()

		q := &recordingQueue{}
		fx := newFixture(t, q)
		auth := authCtx(apikey.PermissionUpload)
		grant := seed(t, fx, auth)

		f, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusProcessing, f.Status)
		assert.Equal(t, []string{"validate", "generate-checksum", "extract-metadata"}, q.enqueued())
	})

	t.Run("second confirm fails with invalid state", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		auth := authCtx(apikey.PermissionUpload)
		grant := seed(t, fx, auth)

		_, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		require.NoError(t, err)

		_, err = fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		assert.Equal(t, gateway.KindInvalidState, kindOf(t, err))

		f, err := fx.files.Get(ctx, auth.OrganizationID, grant.FileID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusProcessing, f.Status)
	})

	t.Run("unknown and cross-tenant files are not found", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		auth := authCtx(apikey.PermissionUpload)
		grant := seed(t, fx, auth)

		_, err := fx.svc.ConfirmUpload(ctx, auth, uuid.New())
		assert.Equal(t, gateway.KindNotFound, kindOf(t, err))

		stranger := authCtx(apikey.PermissionUpload)
		_, err = fx.svc.ConfirmUpload(ctx, stranger, grant.FileID)
		assert.Equal(t, gateway.KindNotFound, kindOf(t, err))
	})

	t.Run("enqueue failure leaves the file uploaded", func(t *testing.T) {
		t.Parallel()

		q := &recordingQueue{err: fmt.Errorf("queue unavailable")}
		fx := newFixture(t, q)
		auth := authCtx(apikey.PermissionUpload)
		grant := seed(t, fx, auth)

		_, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		assert.Equal(t, gateway.KindInternal, kindOf(t, err))

		var ge *gateway.Error
		require.ErrorAs(t, err, &ge)
		assert.True(t, ge.Retryable)

		f, err := fx.files.Get(ctx, auth.OrganizationID, grant.FileID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusUploaded, f.Status)
	})

	t.Run("retry after enqueue failure resumes the confirmation", func(t *testing.T) {
		t.Parallel()

		q := &recordingQueue{err: fmt.Errorf("queue unavailable")}
		fx := newFixture(t, q)
		auth := authCtx(apikey.PermissionUpload)
		grant := seed(t, fx, auth)

		_, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		assert.Equal(t, gateway.KindInternal, kindOf(t, err))

		// The retry the error invites re-drives the fan-out and the
		// processing swap from the uploaded state.
		q.fail(nil)
		f, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusProcessing, f.Status)
		assert.Equal(t, []string{"validate", "generate-checksum", "extract-metadata"}, q.enqueued())
	})
}

// Concurrent confirmations on the same file: one wins the compare-and-swap,
// late arrivals get invalid state, and callers landing in the brief uploaded
// window resume the winner's confirmation. Unique inserts keep the pipeline
// fanned out exactly once regardless of how the race falls.
func TestConfirmUpload_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := &recordingQueue{}
	fx := newFixture(t, q)
	auth := authCtx(apikey.PermissionUpload)

	grant, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
		Filename: "race.pdf", ContentType: "application/pdf", SizeBytes: 5,
	})
	require.NoError(t, err)
	fx.broker.put(grant.Key, []byte("12345"), "application/pdf")

	const contenders = 8
	errs := make(chan error, contenders)
	var start sync.WaitGroup
	start.Add(1)
	var wg sync.WaitGroup
	for range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			_, err := fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
			errs <- err
		}()
	}
	start.Done()
	wg.Wait()
	close(errs)

	var wins, stateRejections int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case gateway.KindOf(err) == gateway.KindInvalidState:
			stateRejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.GreaterOrEqual(t, wins, 1)
	assert.Equal(t, contenders, wins+stateRejections)

	f, err := fx.files.Get(ctx, auth.OrganizationID, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusProcessing, f.Status)
	assert.ElementsMatch(t,
		[]string{"validate", "generate-checksum", "extract-metadata"},
		q.enqueued(), "pipeline fanned out exactly once")
}

func TestRequestDownload(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("eligibility follows the lifecycle", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status   registry.Status
			wantKind gateway.Kind
		}{
			{registry.StatusPendingUpload, gateway.KindInvalidState},
			{registry.StatusUploaded, ""},
			{registry.StatusProcessing, gateway.KindInvalidState},
			{registry.StatusProcessed, ""},
			{registry.StatusFailed, gateway.KindInvalidState},
		}
		for _, tt := range tests {
			t.Run(string(tt.status), func(t *testing.T) {
				t.Parallel()

				fx := newFixture(t, &recordingQueue{})
				auth := authCtx(apikey.PermissionRead)
				f := &registry.File{
					ID:             uuid.New(),
					OrganizationID: auth.OrganizationID,
					StorageKey:     "some/key.pdf",
					OriginalName:   "report.pdf",
					Status:         tt.status,
					CreatedAt:      time.Now(),
				}
				require.NoError(t, fx.files.Create(ctx, f))

				grant, err := fx.svc.RequestDownload(ctx, auth, f.ID)
				if tt.wantKind == "" {
					require.NoError(t, err)
					assert.Equal(t, "report.pdf", grant.Filename)
					assert.Contains(t, grant.DownloadURL, f.StorageKey)
					assert.Equal(t, 1, fx.broker.downloadSignCount())
				} else {
					assert.Equal(t, tt.wantKind, kindOf(t, err))
					assert.Zero(t, fx.broker.downloadSignCount(), "ineligible download must not touch the blob store")
				}
			})
		}
	})

	t.Run("cross-tenant lookups are not found", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t, &recordingQueue{})
		owner := authCtx(apikey.PermissionRead)
		f := &registry.File{
			ID:             uuid.New(),
			OrganizationID: owner.OrganizationID,
			Status:         registry.StatusUploaded,
			CreatedAt:      time.Now(),
		}
		require.NoError(t, fx.files.Create(ctx, f))

		stranger := authCtx(apikey.PermissionRead)
		_, err := fx.svc.RequestDownload(ctx, stranger, f.ID)
		assert.Equal(t, gateway.KindNotFound, kindOf(t, err))
		assert.Zero(t, fx.broker.downloadSignCount())
	})
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, &recordingQueue{})
	auth := authCtx(apikey.PermissionUpload, apikey.PermissionRead, apikey.PermissionDelete)

	grant, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
		Filename: "gone.pdf", ContentType: "application/pdf", SizeBytes: 10,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteFile(ctx, auth, grant.FileID))

	_, err = fx.svc.GetFile(ctx, auth, grant.FileID)
	assert.Equal(t, gateway.KindNotFound, kindOf(t, err))

	// Deleting again reports not found, indistinguishable from absent.
	err = fx.svc.DeleteFile(ctx, auth, grant.FileID)
	assert.Equal(t, gateway.KindNotFound, kindOf(t, err))

	err = fx.svc.DeleteFile(ctx, authCtx(apikey.PermissionRead), grant.FileID)
	assert.Equal(t, gateway.KindAuthorization, kindOf(t, err))
}

func TestListFiles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, &recordingQueue{})
	auth := authCtx(apikey.PermissionUpload, apikey.PermissionRead)

	for _, name := range []string{"a.pdf", "b.pdf"} {
		_, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
			Filename: name, ContentType: "application/pdf", SizeBytes: 10,
		})
		require.NoError(t, err)
	}

	files, err := fx.svc.ListFiles(ctx, auth, registry.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = fx.svc.ListFiles(ctx, auth, registry.ListFilter{Status: registry.StatusPendingUpload})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = fx.svc.ListFiles(ctx, auth, registry.ListFilter{Status: "bogus"})
	assert.Equal(t, gateway.KindValidation, kindOf(t, err))

	files, err = fx.svc.ListFiles(ctx, authCtx(apikey.PermissionRead), registry.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, files)
}

// End-to-end: organization bootstraps, uploads report.pdf, confirms, and the
// pipeline settles the file processed with checksum and metadata populated.
func TestUploadLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t, &inlineQueue{})

	keys := apikey.NewService(apikey.NewMemoryStore())
	_, secret, err := keys.CreateKey(ctx, uuid.New(), "bootstrap-admin", apikey.Permissions{apikey.PermissionAdmin}, nil)
	require.NoError(t, err)
	auth, err := keys.Authenticate(ctx, secret)
	require.NoError(t, err)

	body := bytes.Repeat([]byte("x"), 1200)
	grant, err := fx.svc.RequestUpload(ctx, auth, gateway.UploadRequest{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   1200,
	})
	require.NoError(t, err)

	f, err := fx.svc.GetFile(ctx, auth, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusPendingUpload, f.Status)

	// The client performs its presigned PUT.
	fx.broker.put(grant.Key, body, "application/pdf")

	f, err = fx.svc.ConfirmUpload(ctx, auth, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusProcessed, f.Status)

	require.NotNil(t, f.Checksum)
	assert.Len(t, *f.Checksum, 64)
	require.NotNil(t, f.Valid)
	assert.True(t, *f.Valid)
	assert.NotEmpty(t, f.Metadata["processor_version"])
	assert.ElementsMatch(t, []string{"validate", "generate-checksum", "extract-metadata"}, f.CompletedTasks)

	dl, err := fx.svc.RequestDownload(ctx, auth, grant.FileID)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", dl.Filename)

	// Audit writes are fire-and-forget; drain them before reading the trail.
	drainCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, fx.rec.Close(drainCtx))

	trail, err := fx.svc.AuditTrail(ctx, auth, grant.FileID, 50)
	require.NoError(t, err)
	var actions []audit.Action
	for _, e := range trail {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, audit.ActionUploadRequested)
	assert.Contains(t, actions, audit.ActionUploadConfirmed)
}
