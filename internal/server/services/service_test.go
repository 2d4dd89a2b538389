package services

import (
	"context"
	"database/sql"
	"io"
	"sync"
	"time"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/dbx"
	"github.com/dmoliveira/docbox/internal/logging"
	"github.com/dmoliveira/docbox/internal/server/models"
	"github.com/dmoliveira/docbox/internal/server/repositories/containers"
	"github.com/dmoliveira/docbox/internal/server/repositories/files"
	"github.com/dmoliveira/docbox/internal/server/repositories/signatures"
)

// nopLogger discards everything; service tests assert behavior, not logs.
type nopLogger struct{}

func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// fakeContainerRepo serves container records from an in-memory map.
type fakeContainerRepo struct {
	byID        map[string]*models.Container
	createdIDs  []string
	updated     []*models.Container
	deletedIDs  []string
	listErr     error
	listedOwner []*models.ContainerListing
}

func (r *fakeContainerRepo) Create(ctx context.Context, c *models.Container) error {
	if r.byID == nil {
		r.byID = map[string]*models.Container{}
	}
	r.byID[c.ID] = c
	r.createdIDs = append(r.createdIDs, c.ID)
	return nil
}

func (r *fakeContainerRepo) GetByID(ctx context.Context, id string) (*models.Container, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (r *fakeContainerRepo) GetByIDAndOwner(ctx context.Context, userID, id string) (*models.Container, error) {
	c, ok := r.byID[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (r *fakeContainerRepo) ListByOwner(ctx context.Context, userID string) ([]*models.ContainerListing, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.listedOwner, nil
}

func (r *fakeContainerRepo) ListChildren(ctx context.Context, parentID string) ([]*models.Container, error) {
	var children []*models.Container
	for _, c := range r.byID {
		if c.ParentID == parentID {
			children = append(children, c)
		}
	}
	return children, nil
}

func (r *fakeContainerRepo) Update(ctx context.Context, c *models.Container) error {
	r.updated = append(r.updated, c)
	return nil
}

func (r *fakeContainerRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	r.deletedIDs = append(r.deletedIDs, ids...)
	return nil
}

// fakeFileRepo serves file records from an in-memory map keyed by id.
type fakeFileRepo struct {
	byID          map[string]*models.File
	created       []*models.File
	updated       []*models.File
	deletedIDs    []string
	deleteErr     error
	byContainerID []string
}

func (r *fakeFileRepo) Create(ctx context.Context, f *models.File) error {
	if r.byID == nil {
		r.byID = map[string]*models.File{}
	}
	r.byID[f.ID] = f
	r.created = append(r.created, f)
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, userID, id string) (*models.File, error) {
	f, ok := r.byID[id]
	if !ok || f.UserID != userID {
		return nil, common.ErrNotFound
	}
	return f, nil
}

func (r *fakeFileRepo) ListByOwner(ctx context.Context, userID string) ([]*models.File, error) {
	var result []*models.File
	for _, f := range r.byID {
		if f.UserID == userID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *fakeFileRepo) FindByIDs(ctx context.Context, userID string, ids []string) ([]*models.File, error) {
	var result []*models.File
	for _, id := range ids {
		if f, ok := r.byID[id]; ok && f.UserID == userID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *fakeFileRepo) ListByContainerIDs(ctx context.Context, containerIDs []string) ([]*models.File, error) {
	want := make(map[string]struct{}, len(containerIDs))
	for _, id := range containerIDs {
		want[id] = struct{}{}
	}
	var result []*models.File
	for _, f := range r.byID {
		if _, ok := want[f.ContainerID]; ok {
			result = append(result, f)
		}
	}
	return result, nil
}

func (r *fakeFileRepo) Update(ctx context.Context, f *models.File) error {
	r.updated = append(r.updated, f)
	return nil
}

func (r *fakeFileRepo) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.deletedIDs = append(r.deletedIDs, ids...)
	return int64(len(ids)), nil
}

func (r *fakeFileRepo) DeleteByContainerIDs(ctx context.Context, containerIDs []string) error {
	r.byContainerID = append(r.byContainerID, containerIDs...)
	return nil
}

type fakeSignatureRepo struct {
	byFileID map[string][]*models.Signature
}

func (r *fakeSignatureRepo) ListByFileID(ctx context.Context, fileID string) ([]*models.Signature, error) {
	return r.byFileID[fileID], nil
}

// fakeRepoManager hands out the same fakes regardless of the DBTX, so service
// flows can be exercised without a live database.
type fakeRepoManager struct {
	files      *fakeFileRepo
	containers *fakeContainerRepo
	signatures *fakeSignatureRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		files:      &fakeFileRepo{byID: map[string]*models.File{}},
		containers: &fakeContainerRepo{byID: map[string]*models.Container{}},
		signatures: &fakeSignatureRepo{byFileID: map[string][]*models.Signature{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Files(dbx.DBTX) files.Repository             { return m.files }
func (m *fakeRepoManager) Containers(dbx.DBTX) containers.Repository   { return m.containers }
func (m *fakeRepoManager) Signatures(dbx.DBTX) signatures.Repository   { return m.signatures }

// blobCall records one invocation against the fake blob store.
type blobCall struct {
	op  string
	key string
}

// fakeBlobStore records calls in order. Failures can be armed per key
// (failKeys) or per operation name (failOps).
type fakeBlobStore struct {
	mu       sync.Mutex
	calls    []blobCall
	failKeys map[string]error
	failOps  map[string]error
	objects  map[string][]byte
	types    map[string]string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		failKeys: map[string]error{},
		failOps:  map[string]error{},
		objects:  map[string][]byte{},
		types:    map[string]string{},
	}
}

func (b *fakeBlobStore) record(op, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, blobCall{op: op, key: key})
	if err, ok := b.failKeys[key]; ok {
		return err
	}
	if err, ok := b.failOps[op]; ok {
		return err
	}
	return nil
}

func (b *fakeBlobStore) callOps() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]string, len(b.calls))
	for i, c := range b.calls {
		ops[i] = c.op
	}
	return ops
}

func (b *fakeBlobStore) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := b.record("presign-put", key); err != nil {
		return "", err
	}
	return "https://blobs.test/upload/" + key, nil
}

func (b *fakeBlobStore) PresignGet(ctx context.Context, key string, ttl time.Duration, inline bool) (string, error) {
	if err := b.record("presign-get", key); err != nil {
		return "", err
	}
	return "https://blobs.test/download/" + key, nil
}

func (b *fakeBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	if err := b.record("put", key); err != nil {
		return err
	}
	data, _ := io.ReadAll(body)
	b.mu.Lock()
	b.objects[key] = data
	b.types[key] = contentType
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobStore) Copy(ctx context.Context, srcKey, destKey, contentType string) error {
	if err := b.record("copy", destKey); err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[destKey] = b.objects[srcKey]
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := b.record("get", key); err != nil {
		return nil, "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, "", &common.BlobStoreError{Op: "get", Key: key, Err: common.ErrNotFound}
	}
	return data, b.types[key], nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if err := b.record("delete", key); err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobStore) DeleteBatch(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := b.record("delete", k); err != nil {
			return err
		}
		b.mu.Lock()
		delete(b.objects, k)
		b.mu.Unlock()
	}
	return nil
}
