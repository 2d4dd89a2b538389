package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/dbx"
	"github.com/dmoliveira/docbox/internal/logging"
	"github.com/dmoliveira/docbox/internal/server/cache"
	sc "github.com/dmoliveira/docbox/internal/server/config"
	"github.com/dmoliveira/docbox/internal/server/keys"
	"github.com/dmoliveira/docbox/internal/server/models"
	"github.com/dmoliveira/docbox/internal/server/repositories/repomanager"
)

// ContainerService orchestrates the container lifecycle: creation, listing
// with file counts, rename / re-parent, and the cascading delete that keeps
// blob prefixes, file records and container records consistent.
type ContainerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       BlobStore
	listings    *cache.ListingCache
	config      *sc.Config
	logger      logging.Logger
}

func NewContainerService(db *sql.DB, rm repomanager.RepositoryManager, blobs BlobStore,
	listings *cache.ListingCache, config *sc.Config, logger logging.Logger) *ContainerService {
	return &ContainerService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		listings:    listings,
		config:      config,
		logger:      logger.With("module", "container_service"),
	}
}

// CreateContainerInput carries the user-supplied fields for a new container.
type CreateContainerInput struct {
	Name        string
	Description string
	ParentID    string
}

// Create validates the input, verifies parent ownership when nesting, and
// persists the container.
func (s *ContainerService) Create(ctx context.Context, userID string, in CreateContainerInput) (*models.Container, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	repo := s.repomanager.Containers(s.db)

	if in.ParentID != "" {
		if _, err := repo.GetByIDAndOwner(ctx, userID, in.ParentID); err != nil {
			return nil, err
		}
	}

	c := &models.Container{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
	}

	if err := repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, userID)
	return c, nil
}

// List returns the caller's containers with per-container file counts,
// served from the listing cache when warm.
func (s *ContainerService) List(ctx context.Context, userID string) ([]*models.ContainerListing, error) {
	if payload, ok := s.listings.Get(ctx, userID); ok {
		var cached []*models.ContainerListing
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		// Undecodable payload: fall through and overwrite below.
	}

	result, err := s.repomanager.Containers(s.db).ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(result); err == nil {
		s.listings.Set(ctx, userID, payload)
	}
	return result, nil
}

// ResolvePath returns the container's ancestor names, root first.
func (s *ContainerService) ResolvePath(ctx context.Context, containerID string) ([]string, error) {
	return ResolveContainerPath(ctx, s.repomanager.Containers(s.db), containerID)
}

// UpdateContainerInput carries the mutable container fields. Nil pointers
// leave the current value untouched; an empty ParentID moves the container
// to the root.
type UpdateContainerInput struct {
	ID          string
	Name        *string
	Description *string
	ParentID    *string
}

// Update renames or re-parents a container. A re-parent walks the ancestry
// of the proposed parent and rejects the move if it reaches the container
// being moved, which would introduce a cycle.
func (s *ContainerService) Update(ctx context.Context, userID string, in UpdateContainerInput) (*models.Container, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("%w: container id is required", common.ErrValidation)
	}
	if in.Name == nil && in.Description == nil && in.ParentID == nil {
		return nil, fmt.Errorf("%w: nothing to update", common.ErrValidation)
	}

	repo := s.repomanager.Containers(s.db)

	c, err := repo.GetByIDAndOwner(ctx, userID, in.ID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", common.ErrValidation)
		}
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.ParentID != nil && *in.ParentID != c.ParentID {
		if *in.ParentID != "" {
			if _, err := repo.GetByIDAndOwner(ctx, userID, *in.ParentID); err != nil {
				return nil, err
			}
			if err := s.checkNoCycle(ctx, c.ID, *in.ParentID); err != nil {
				return nil, err
			}
		}
		c.ParentID = *in.ParentID
	}

	if err := repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.listings.Invalidate(ctx, userID)
	return c, nil
}

// checkNoCycle walks upward from newParentID and fails if it encounters
// movedID. O(depth) against the arena of container records.
func (s *ContainerService) checkNoCycle(ctx context.Context, movedID, newParentID string) error {
	repo := s.repomanager.Containers(s.db)

	visited := make(map[string]struct{})
	current := newParentID
	for current != "" {
		if current == movedID {
			return fmt.Errorf("%w: container %s cannot become its own descendant", common.ErrCyclicHierarchy, movedID)
		}
		if _, ok := visited[current]; ok {
			break
		}
		visited[current] = struct{}{}

		c, err := repo.GetByID(ctx, current)
		if errors.Is(err, common.ErrNotFound) {
			break
		}
		if err != nil {
			return err
		}
		current = c.ParentID
	}
	return nil
}

// Delete cascades a container removal. Order is mandatory: resolve the
// container scoped to the requester, delete the blobs of every file record
// filed in the subtree plus the folder placeholder objects, then delete all
// subtree file records and container records in one transaction. The blob
// half is best-effort ahead of the atomic metadata half.
//
// Blob keys are enumerated from the subtree's file records, never listed by
// path prefix. Keys are historical: a file moved out of the subtree keeps a
// key under this container's path and its blob must survive, a file moved in
// carries a key from elsewhere and its blob must go, and a sibling container
// with the same name shares the path without sharing any records.
func (s *ContainerService) Delete(ctx context.Context, userID, containerID string) error {
	if containerID == "" {
		return fmt.Errorf("%w: container id is required", common.ErrValidation)
	}

	repo := s.repomanager.Containers(s.db)

	c, err := repo.GetByIDAndOwner(ctx, userID, containerID)
	if err != nil {
		return err
	}

	subtree, err := collectSubtree(ctx, repo, c.ID)
	if err != nil {
		return err
	}
	subtreeIDs := make([]string, len(subtree))
	for i, node := range subtree {
		subtreeIDs[i] = node.ID
	}

	records, err := s.repomanager.Files(s.db).ListByContainerIDs(ctx, subtreeIDs)
	if err != nil {
		return err
	}

	markers, err := s.markerKeys(ctx, userID, subtree)
	if err != nil {
		return err
	}

	blobKeys := make([]string, 0, len(records)+len(markers))
	for _, f := range records {
		blobKeys = append(blobKeys, f.Key)
	}
	blobKeys = append(blobKeys, markers...)

	if err := s.blobs.DeleteBatch(ctx, blobKeys); err != nil {
		s.logger.Error(ctx, "blob delete failed", "container_id", containerID, "error", err)
		return err
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Files(tx).DeleteByContainerIDs(ctx, subtreeIDs); err != nil {
			return err
		}
		return s.repomanager.Containers(tx).DeleteByIDs(ctx, subtreeIDs)
	})
	if err != nil {
		return err
	}

	s.listings.Invalidate(ctx, userID)
	s.logger.Info(ctx, "container deleted", "container_id", containerID, "subtree_size", len(subtreeIDs))
	return nil
}

// markerKeys derives the zero-byte folder placeholder key for every container
// in the subtree. The subtree is breadth-first with the root first, so each
// parent's prefix is known before its children are reached.
func (s *ContainerService) markerKeys(ctx context.Context, userID string, subtree []*models.Container) ([]string, error) {
	rootPath, err := s.ResolvePath(ctx, subtree[0].ID)
	if err != nil {
		return nil, err
	}

	prefixes := map[string]string{subtree[0].ID: keys.Prefix(userID, rootPath)}
	markers := []string{prefixes[subtree[0].ID]}
	for _, node := range subtree[1:] {
		p := prefixes[node.ParentID] + node.Name + "/"
		prefixes[node.ID] = p
		markers = append(markers, p)
	}
	return markers, nil
}
