package decks

import (
	"context"
	"time"

	"deckintel-backend/internal/analysis"
	"deckintel-backend/internal/checklist"
)

// Repo defines persistence operations for decks and their analysis
// rows. Implementations enforce the status machine: pending ->
// processing -> completed|failed, with terminal states refusing
// further transitions until ResetForReanalysis.
type Repo interface {
	Create(ctx context.Context, deck Deck) error
	GetByID(ctx context.Context, id string) (Deck, error)

	// List filters by company and status when non-empty, newest first.
	List(ctx context.Context, companyID, status string) ([]Deck, error)

	// MarkProcessing moves a pending deck to processing.
	MarkProcessing(ctx context.Context, id string) error

	// UpdateChecklistItems stores the parsed checklist items mid-job.
	UpdateChecklistItems(ctx context.Context, id string, items []checklist.Item) error

	// CompleteAnalysis atomically persists the overall result, the
	// section rows, and the completed status. Section and overall
	// scores arrive on the model's 0-100 scale and are stored 0-1.
	// Readers never observe a partial section set.
	CompleteAnalysis(ctx context.Context, id string, result analysis.Result, sections []analysis.Section, analyzedAt time.Time) error

	// MarkFailed moves a processing deck to failed, keeping the error
	// message for diagnostics.
	MarkFailed(ctx context.Context, id string, message string, failedAt time.Time) error

	ListSections(ctx context.Context, deckID string) ([]SectionScore, error)

	// ResetForReanalysis returns a terminal deck to pending, clearing
	// prior results, error message, and section rows.
	ResetForReanalysis(ctx context.Context, id string) error
}
