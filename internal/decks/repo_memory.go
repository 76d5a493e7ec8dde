package decks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"deckintel-backend/internal/analysis"
	"deckintel-backend/internal/checklist"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	decks    map[string]Deck
	sections map[string][]SectionScore
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		decks:    make(map[string]Deck),
		sections: make(map[string][]SectionScore),
	}
}

// Create stores a new deck.
func (r *MemoryRepo) Create(ctx context.Context, deck Deck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decks[deck.ID] = deck
	return nil
}

// GetByID returns a deck by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Deck, error) {
	if err := ctx.Err(); err != nil {
		return Deck{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	deck, ok := r.decks[id]
	if !ok {
		return Deck{}, ErrNotFound
	}
	return deck, nil
}

// List returns decks, optionally filtered, newest first.
func (r *MemoryRepo) List(ctx context.Context, companyID, status string) ([]Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Deck{}
	for _, deck := range r.decks {
		if companyID != "" && deck.CompanyID != companyID {
			continue
		}
		if status != "" && deck.Status != status {
			continue
		}
		out = append(out, deck)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// MarkProcessing moves a pending deck to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(deck.Status) {
		return fmt.Errorf("%w: %s", ErrTerminalState, deck.Status)
	}
	deck.Status = StatusProcessing
	r.decks[id] = deck
	return nil
}

// UpdateChecklistItems stores parsed checklist items.
func (r *MemoryRepo) UpdateChecklistItems(ctx context.Context, id string, items []checklist.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok {
		return ErrNotFound
	}
	deck.ChecklistItems = items
	r.decks[id] = deck
	return nil
}

// CompleteAnalysis persists results and sections in one lock hold.
func (r *MemoryRepo) CompleteAnalysis(ctx context.Context, id string, result analysis.Result, sections []analysis.Section, analyzedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok {
		return ErrNotFound
	}
	if deck.Status != StatusProcessing {
		return fmt.Errorf("%w: %s", ErrTerminalState, deck.Status)
	}

	score := result.OverallScore / 100
	deck.Status = StatusCompleted
	deck.SSOScore = &score
	deck.Recommendation = result.Recommendation
	deck.Analysis = payload
	deck.ErrorMessage = ""
	deck.AnalyzedAt = &analyzedAt
	r.decks[id] = deck

	rows := make([]SectionScore, 0, len(sections))
	for i, section := range sections {
		rows = append(rows, SectionScore{
			DeckID:       id,
			SectionName:  section.SectionName,
			SectionScore: section.SectionScore / 100,
			Feedback:     section.Feedback,
			Strengths:    section.Strengths,
			Improvements: section.Improvements,
			Position:     i,
		})
	}
	r.sections[id] = rows
	return nil
}

// MarkFailed moves a processing deck to failed.
func (r *MemoryRepo) MarkFailed(ctx context.Context, id string, message string, failedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok {
		return ErrNotFound
	}
	if IsTerminal(deck.Status) {
		return fmt.Errorf("%w: %s", ErrTerminalState, deck.Status)
	}
	deck.Status = StatusFailed
	deck.ErrorMessage = message
	deck.AnalyzedAt = &failedAt
	r.decks[id] = deck
	delete(r.sections, id)
	return nil
}

// ListSections returns section rows in model order.
func (r *MemoryRepo) ListSections(ctx context.Context, deckID string) ([]SectionScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.sections[deckID]
	out := make([]SectionScore, len(rows))
	copy(out, rows)
	return out, nil
}

// ResetForReanalysis returns a deck to pending and clears results.
func (r *MemoryRepo) ResetForReanalysis(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	deck, ok := r.decks[id]
	if !ok {
		return ErrNotFound
	}
	if deck.Status == StatusProcessing {
		return ErrAnalysisInProgress
	}
	deck.Status = StatusPending
	deck.SSOScore = nil
	deck.Recommendation = ""
	deck.Analysis = nil
	deck.ErrorMessage = ""
	deck.AnalyzedAt = nil
	r.decks[id] = deck
	delete(r.sections, id)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
