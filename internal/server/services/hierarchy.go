package services

import (
	"context"
	"errors"

	"github.com/dmoliveira/docbox/internal/common"
	"github.com/dmoliveira/docbox/internal/server/models"
	"github.com/dmoliveira/docbox/internal/server/repositories/containers"
)

// ResolveContainerPath walks parent links from containerID up to a root and
// returns the visited container names in root-to-leaf order.
//
// A missing parent terminates the walk silently: lookup failures on
// ancestors mean "no more ancestors", not an error, so a file can still be
// keyed under a partially dismantled hierarchy. A revisited id (cyclic
// parent graph) also terminates the walk instead of looping forever.
func ResolveContainerPath(ctx context.Context, repo containers.Repository, containerID string) ([]string, error) {
	var path []string
	visited := make(map[string]struct{})

	current := containerID
	for current != "" {
		if _, ok := visited[current]; ok {
			break
		}
		visited[current] = struct{}{}

		c, err := repo.GetByID(ctx, current)
		if errors.Is(err, common.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		path = append([]string{c.Name}, path...)
		current = c.ParentID
	}

	return path, nil
}

// collectSubtree returns containerID plus every descendant container,
// breadth-first and cycle-safe. The root comes first.
func collectSubtree(ctx context.Context, repo containers.Repository, containerID string) ([]*models.Container, error) {
	root, err := repo.GetByID(ctx, containerID)
	if err != nil {
		return nil, err
	}

	subtree := []*models.Container{root}
	visited := map[string]struct{}{root.ID: {}}
	queue := []string{root.ID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		children, err := repo.ListChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if _, ok := visited[child.ID]; ok {
				continue
			}
			visited[child.ID] = struct{}{}
			subtree = append(subtree, child)
			queue = append(queue, child.ID)
		}
	}

	return subtree, nil
}
