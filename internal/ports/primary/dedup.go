package primary

import "context"

// DedupService defines the primary port for the file duplicate resolver,
// a batch maintenance sweep over the file-storage table.
type DedupService interface {
	// Sweep resolves duplicate file keys until none remain in scope,
	// merging one key per transaction.
	Sweep(ctx context.Context, req SweepRequest) (*SweepReport, error)
}

// SweepRequest optionally narrows the sweep to one project or one key.
type SweepRequest struct {
	ProjectID string
	FileKey   string
	// BatchSize caps how many duplicate keys are fetched per query;
	// zero uses the service default.
	BatchSize int
}

// SweepReport summarizes one sweep run.
type SweepReport struct {
	KeysResolved  int
	RowsDeleted   int
	RowsRepointed int
	FlagsRepaired int
	// KeysSkipped counts keys whose merge failed and was left in place.
	KeysSkipped int
}
