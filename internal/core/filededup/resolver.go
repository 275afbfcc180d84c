// Package filededup contains the pure business logic for resolving
// duplicate file records that share a file_key.
// This is part of the Functional Core - no I/O, only pure functions.
package filededup

import (
	"sort"

	"github.com/example/atelier/internal/models"
)

// PickSurvivor selects the row that survives a merge, using the fixed
// priority order:
//
//	(a) a non-deleted row over a deleted one
//	(b) a row attached to a topic over one that is not
//	(c) a row attached to a project over one that is not
//	(d) earliest created_at
//	(e) lowest ID as final tie-break
//
// Returns nil for an empty slice.
func PickSurvivor(rows []*models.FileRecord) *models.FileRecord {
	if len(rows) == 0 {
		return nil
	}

	sorted := make([]*models.FileRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.DeletedAt == nil) != (b.DeletedAt == nil) {
			return a.DeletedAt == nil
		}
		if (a.TopicID != "") != (b.TopicID != "") {
			return a.TopicID != ""
		}
		if (a.ProjectID != "") != (b.ProjectID != "") {
			return a.ProjectID != ""
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return sorted[0]
}

// ConsistentIsDir returns the is_directory flag all rows of a key should
// carry. Rows sharing a key must agree; when a buggy writer left the
// group mixed, the majority wins, and a tie keeps the directory
// interpretation because deleting a directory row orphans its children.
func ConsistentIsDir(rows []*models.FileRecord) bool {
	dirs := 0
	for _, r := range rows {
		if r.IsDir {
			dirs++
		}
	}
	return dirs*2 >= len(rows)
}

// MergePlan describes how one file_key's duplicates collapse into a
// single surviving row. Repoint and delete must be applied as one unit:
// deleting superseded rows without repointing their children leaves
// dangling parent references.
type MergePlan struct {
	Survivor *models.FileRecord
	// Superseded rows are soft-deleted after their children have been
	// re-pointed at the survivor.
	Superseded []*models.FileRecord
	// RepairIsDir is set when the survivor's is_directory flag disagrees
	// with the consistent flag for the group and must be rewritten.
	RepairIsDir bool
	IsDir       bool
}

// PlanMerge computes the merge for one group of rows sharing a file_key
// within one project. Fewer than two rows need no merge. A directory row
// is never silently merged into a plain file: the group's is_directory
// flag is repaired toward consistency first, then a single survivor is
// chosen by the fixed priority order.
func PlanMerge(rows []*models.FileRecord) *MergePlan {
	if len(rows) < 2 {
		return nil
	}

	survivor := PickSurvivor(rows)
	isDir := ConsistentIsDir(rows)

	plan := &MergePlan{
		Survivor:    survivor,
		RepairIsDir: survivor.IsDir != isDir,
		IsDir:       isDir,
	}
	for _, r := range rows {
		if r.ID != survivor.ID {
			plan.Superseded = append(plan.Superseded, r)
		}
	}
	return plan
}
