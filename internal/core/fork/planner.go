// Package fork contains the pure business logic for project forking:
// progress accounting and the per-batch copy planner.
// This is part of the Functional Core - no I/O, only pure functions.
package fork

import (
	"github.com/example/atelier/internal/models"
)

// Progress computes the fork progress percentage. TotalFiles is a
// best-effort snapshot taken at fork start, so processed may legitimately
// exceed it when the source grew during the copy; progress is capped.
func Progress(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 100 {
		p = 100
	}
	return p
}

// CopyOp describes one destination row to create. SourceParentID is
// resolved to a destination parent when destination IDs are allocated,
// through the parent map built incrementally across batches; source
// pages are ordered by ID, so a parent directory is always planned
// before its children.
type CopyOp struct {
	SourceID       string
	SourceParentID string // empty for tree roots
	Name           string
	FileKey        string
	IsDir          bool
	Sort           int
	Size           int64
	TopicID        string
}

// BatchPlan is the result of planning one batch.
type BatchPlan struct {
	Ops []CopyOp
	// LastSourceID is the resume cursor to checkpoint after the batch
	// commits; empty when the batch was empty.
	LastSourceID string
}

// PlanBatch maps one page of source files, ordered by ID ascending, into
// destination copy operations.
func PlanBatch(files []*models.FileRecord) BatchPlan {
	plan := BatchPlan{Ops: make([]CopyOp, 0, len(files))}

	for _, f := range files {
		plan.Ops = append(plan.Ops, CopyOp{
			SourceID:       f.ID,
			SourceParentID: f.ParentID,
			Name:           f.Name,
			FileKey:        f.FileKey,
			IsDir:          f.IsDir,
			Sort:           f.Sort,
			Size:           f.Size,
			TopicID:        f.TopicID,
		})
		plan.LastSourceID = f.ID
	}

	return plan
}
