package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/logging"
	"github.com/dmoliveira/docbox/internal/server/cache"
	sc "github.com/dmoliveira/docbox/internal/server/config"
	"github.com/dmoliveira/docbox/internal/server/keys"
	"github.com/dmoliveira/docbox/internal/server/models"
	"github.com/dmoliveira/docbox/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// batchConcurrency bounds the blob fan-out of batch operations.
const batchConcurrency = 8

// FileService orchestrates the file lifecycle: upload grants, download
// grants, server-mediated streaming, rename / move / replace, and batch
// deletion. Blob operations always commit before the metadata that
// describes them.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	listings    *cache.ListingCache
	config      *sc.Config
	logger      logging.Logger
}

func NewFileService(db *sql.DB, rm repomanager.RepositoryManager, blobs BlobStore,
	listings *cache.ListingCache, config *sc.Config, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		listings:    listings,
		config:      config,
		logger:      logger.With("module", "file_service"),
	}
}

// UploadInput carries the declared properties of a file about to be
// uploaded. All fields are required.
type UploadInput struct {
	ContainerID string
	FileName    string
	FileSize    string
	FileType    string
}

// UploadGrant is the result of IssueUpload: a presigned PUT URL the client
// uploads to directly, and the blob key the record was created under.
type UploadGrant struct {
	UploadURL string
	Key       string
	FileID    string
}

// IssueUpload validates the declared file properties, derives a blob key
// scoped to the target container's hierarchy, issues a time-limited upload
// grant and writes the file record.
//
// The record is written optimistically at grant issuance; the client's
// upload happens out-of-band and is not confirmed by this layer.
func (s *FileService) IssueUpload(ctx context.Context, userID string, in UploadInput) (*UploadGrant, error) {
	switch {
	case in.ContainerID == "":
		return nil, fmt.Errorf("%w: containerId is required", common.ErrValidation)
	case in.FileName == "":
		return nil, fmt.Errorf("%w: fileName is required", common.ErrValidation)
	case in.FileSize == "":
		return nil, fmt.Errorf("%w: fileSize is required", common.ErrValidation)
	case in.FileType == "":
		return nil, fmt.Errorf("%w: fileType is required", common.ErrValidation)
	}

	containerRepo := s.repomanager.Containers(s.db)

	if _, err := containerRepo.GetByIDAndOwner(ctx, userID, in.ContainerID); err != nil {
		return nil, err
	}

	containerPath, err := ResolveContainerPath(ctx, containerRepo, in.ContainerID)
	if err != nil {
		return nil, err
	}

	key := keys.Generate(userID, containerPath, in.FileType)

	uploadURL, err := s.blobs.PresignPut(ctx, key, in.FileType, s.config.UploadGrantTTL)
	if err != nil {
		s.logger.Error(ctx, "upload grant failed", "key", key, "error", err)
		return nil, err
	}

	f := &models.File{
		ID:          uuid.NewString(),
		UserID:      userID,
		ContainerID: in.ContainerID,
		Key:         key,
		FileName:    in.FileName,
		FileSize:    in.FileSize,
		FileType:    in.FileType,
	}

	if err := s.repomanager.Files(s.db).Create(ctx, f); err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, userID)
	return &UploadGrant{UploadURL: uploadURL, Key: key, FileID: f.ID}, nil
}

// ListWithDownloadGrants returns the caller's files, newest first, each
// paired with a presigned inline GET URL. Grants are issued with bounded
// fan-out; any single failure fails the listing, mirroring the all-or-
// nothing read semantics of the dashboard.
func (s *FileService) ListWithDownloadGrants(ctx context.Context, userID string) ([]*models.FileWithURL, error) {
	records, err := s.repomanager.Files(s.db).ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*models.FileWithURL, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, f := range records {
		g.Go(func() error {
			url, err := s.blobs.PresignGet(gctx, f.Key, s.config.DownloadGrantTTL, true)
			if err != nil {
				return err
			}
			result[i] = &models.FileWithURL{
				ID:        f.ID,
				FileName:  f.FileName,
				FileType:  f.FileType,
				CreatedAt: f.CreatedAt,
				URL:       url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Stream buffers the blob behind fileID into memory and returns its bytes
// with the content type to serve them under.
func (s *FileService) Stream(ctx context.Context, userID, fileID string) ([]byte, string, error) {
	if fileID == "" {
		return nil, "", fmt.Errorf("%w: fileId is required", common.ErrValidation)
	}

	f, err := s.repomanager.Files(s.db).GetByID(ctx, userID, fileID)
	if err != nil {
		return nil, "", err
	}

	data, contentType, err := s.blobs.Get(ctx, f.Key)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = f.FileType
	}
	return data, contentType, nil
}

// FileDetail is a file record joined with its container (when filed) and
// any signatures attached to it.
type FileDetail struct {
	File       *models.File
	Container  *models.Container
	Signatures []*models.Signature
}

// GetDetail loads a file scoped to the requester together with its related
// container and signature records.
func (s *FileService) GetDetail(ctx context.Context, userID, fileID string) (*FileDetail, error) {
	f, err := s.repomanager.Files(s.db).GetByID(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	detail := &FileDetail{File: f}

	if f.ContainerID != "" {
		c, err := s.repomanager.Containers(s.db).GetByID(ctx, f.ContainerID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			// Container row already gone; the file is effectively unfiled.
		case err != nil:
			return nil, err
		default:
			detail.Container = c
		}
	}

	sigs, err := s.repomanager.Signatures(s.db).ListByFileID(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	detail.Signatures = sigs

	return detail, nil
}

// ContentReplacement carries replacement content for an existing file. Data
// may be nil when only the declared type/size change and the bytes were
// uploaded out-of-band to the same key.
type ContentReplacement struct {
	FileType string
	FileSize string
	Data     []byte
}

// UpdateFileInput carries the mutable fields of a file. Nil means "leave
// unchanged"; an empty *NewContainerID unfiles the record.
type UpdateFileInput struct {
	ID             string
	NewName        string
	NewContainerID *string
	NewContent     *ContentReplacement
}

// Update applies rename, container retarget and content replacement.
//
// A content replacement whose extension differs from the current key's
// derives a fresh key: the blob is written (or server-side copied) to the
// new key first, the old key is deleted after, and metadata is updated only
// once both blob operations succeeded. A replacement keeping the extension
// overwrites the blob in place. Name-only and container-only updates touch
// no blobs: keys are not required to mirror container placement after
// creation.
func (s *FileService) Update(ctx context.Context, userID string, in UpdateFileInput) (*models.File, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("%w: fileId is required", common.ErrValidation)
	}
	if in.NewName == "" && in.NewContainerID == nil && in.NewContent == nil {
		return nil, fmt.Errorf("%w: at least one of newFileName, newContainerId or newContent must be provided", common.ErrValidation)
	}

	fileRepo := s.repomanager.Files(s.db)
	containerRepo := s.repomanager.Containers(s.db)

	f, err := fileRepo.GetByID(ctx, userID, in.ID)
	if err != nil {
		return nil, err
	}

	if in.NewContainerID != nil && *in.NewContainerID != "" && *in.NewContainerID != f.ContainerID {
		if _, err := containerRepo.GetByIDAndOwner(ctx, userID, *in.NewContainerID); err != nil {
			return nil, err
		}
	}

	if in.NewContent != nil {
		if in.NewContent.FileType == "" || in.NewContent.FileSize == "" {
			return nil, fmt.Errorf("%w: newContent requires fileType and fileSize", common.ErrValidation)
		}

		oldExt := strings.TrimPrefix(path.Ext(f.Key), ".")
		newExt := keys.Extension(in.NewContent.FileType)

		if newExt != oldExt {
			targetContainer := f.ContainerID
			if in.NewContainerID != nil {
				targetContainer = *in.NewContainerID
			}
			containerPath, err := ResolveContainerPath(ctx, containerRepo, targetContainer)
			if err != nil {
				return nil, err
			}
			newKey := keys.Generate(userID, containerPath, in.NewContent.FileType)

			// Write the new key before touching the old one: a failed
			// copy must not lose the only blob.
			if in.NewContent.Data != nil {
				err = s.blobs.Put(ctx, newKey, in.NewContent.FileType, bytes.NewReader(in.NewContent.Data))
			} else {
				err = s.blobs.Copy(ctx, f.Key, newKey, in.NewContent.FileType)
			}
			if err != nil {
				s.logger.Error(ctx, "content replacement failed", "key", newKey, "error", err)
				return nil, err
			}
			if err := s.blobs.Delete(ctx, f.Key); err != nil {
				s.logger.Error(ctx, "old blob delete failed", "key", f.Key, "error", err)
				return nil, err
			}
			f.Key = newKey
		} else if in.NewContent.Data != nil {
			if err := s.blobs.Put(ctx, f.Key, in.NewContent.FileType, bytes.NewReader(in.NewContent.Data)); err != nil {
				s.logger.Error(ctx, "in-place replacement failed", "key", f.Key, "error", err)
				return nil, err
			}
		}

		f.FileType = in.NewContent.FileType
		f.FileSize = in.NewContent.FileSize
	}

	if in.NewName != "" {
		f.FileName = in.NewName
	}

	containerChanged := false
	if in.NewContainerID != nil && *in.NewContainerID != f.ContainerID {
		f.ContainerID = *in.NewContainerID
		containerChanged = true
	}

	if err := fileRepo.Update(ctx, f); err != nil {
		return nil, err
	}

	if containerChanged {
		s.listings.Invalidate(ctx, userID)
	}
	return f, nil
}

// DeleteResult reports the outcome of a batch delete: how many records were
// removed, which requested ids did not resolve to a file owned by the
// requester, and which resolved files failed at the blob layer.
type DeleteResult struct {
	Deleted int64
	Skipped []string
	Failed  []common.BatchItemResult
}

// Delete removes the requested files. Ids that do not resolve to a record
// owned by the requester are skipped, not errors. Blob deletes run with
// bounded fan-out and are isolated per item: one file's failure neither
// cancels in-flight siblings nor blocks their metadata deletion, but it
// does keep that file's own record, since a record must not describe a
// blob state that was never achieved.
//
// When every resolved file was deleted, err is nil. When a strict subset
// failed, the returned error is a *common.PartialBatchError and the result
// still reports the completed subset.
func (s *FileService) Delete(ctx context.Context, userID string, fileIDs []string) (*DeleteResult, error) {
	if len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: fileIds must be a non-empty array", common.ErrValidation)
	}

	fileRepo := s.repomanager.Files(s.db)

	found, err := fileRepo.FindByIDs(ctx, userID, fileIDs)
	if err != nil {
		return nil, err
	}

	foundIDs := make(map[string]struct{}, len(found))
	for _, f := range found {
		foundIDs[f.ID] = struct{}{}
	}
	var skipped []string
	for _, id := range fileIDs {
		if _, ok := foundIDs[id]; !ok {
			skipped = append(skipped, id)
		}
	}

	var mu sync.Mutex
	var failed []common.BatchItemResult
	deletable := make([]string, 0, len(found))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, f := range found {
		g.Go(func() error {
			if err := s.blobs.Delete(gctx, f.Key); err != nil {
				s.logger.Error(ctx, "blob delete failed", "file_id", f.ID, "key", f.Key, "error", err)
				mu.Lock()
				failed = append(failed, common.BatchItemResult{ID: f.ID, Err: err})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			deletable = append(deletable, f.ID)
			mu.Unlock()
			return nil
		})
	}
	// Workers record failures instead of returning them, so Wait cannot fail.
	_ = g.Wait()

	deleted, err := fileRepo.DeleteByIDs(ctx, userID, deletable)
	if err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, userID)

	result := &DeleteResult{Deleted: deleted, Skipped: skipped, Failed: failed}
	if len(failed) > 0 {
		return result, &common.PartialBatchError{Op: "files.delete", Failed: failed}
	}
	return result, nil
}
