package decks

import (
	"encoding/json"
	"time"

	"deckintel-backend/internal/checklist"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// IsTerminal reports whether a deck status admits no further
// transitions short of an explicit re-analysis reset.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Deck represents an uploaded pitch deck and its analysis lifecycle.
// SSOScore is stored on a 0-1 scale; the API scales to 0-100.
type Deck struct {
	ID                string
	CompanyID         string
	FileName          string
	StorageKey        string
	ChecklistFileName string
	ChecklistKey      string
	MimeType          string
	SizeBytes         int64
	Status            string
	SSOScore          *float64
	Recommendation    string
	Analysis          json.RawMessage
	ChecklistItems    []checklist.Item
	ErrorMessage      string
	UploadedAt        time.Time
	AnalyzedAt        *time.Time
}

// SectionScore is one persisted per-section evaluation row. Scores are
// stored on a 0-1 scale; Position preserves the model's section order.
type SectionScore struct {
	DeckID       string
	SectionName  string
	SectionScore float64
	Feedback     string
	Strengths    []string
	Improvements []string
	Position     int
}
