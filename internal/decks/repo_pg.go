package decks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deckintel-backend/internal/analysis"
	"deckintel-backend/internal/checklist"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const deckColumns = `
id, company_id, file_name, storage_key, checklist_file_name, checklist_key,
mime_type, size_bytes, status, sso_score, recommendation, analysis,
checklist_items, error_message, uploaded_at, analyzed_at`

// Create inserts a new deck.
func (r *PGRepo) Create(ctx context.Context, deck Deck) error {
	const query = `
INSERT INTO pitch_decks (
    id, company_id, file_name, storage_key, checklist_file_name, checklist_key,
    mime_type, size_bytes, status, uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var companyID sql.NullString
	if deck.CompanyID != "" {
		companyID = sql.NullString{String: deck.CompanyID, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		deck.ID,
		companyID,
		deck.FileName,
		deck.StorageKey,
		deck.ChecklistFileName,
		deck.ChecklistKey,
		deck.MimeType,
		deck.SizeBytes,
		deck.Status,
		deck.UploadedAt,
	)
	return err
}

// GetByID fetches a deck by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM pitch_decks WHERE id = $1`
	deck, err := scanDeck(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Deck{}, ErrNotFound
		}
		return Deck{}, err
	}
	return deck, nil
}

// List returns decks, optionally filtered by company and status,
// newest first.
func (r *PGRepo) List(ctx context.Context, companyID, status string) ([]Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM pitch_decks WHERE 1=1`
	args := []any{}
	if companyID != "" {
		args = append(args, companyID)
		query += fmt.Sprintf(" AND company_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY uploaded_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Deck{}
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, deck)
	}
	return out, rows.Err()
}

// MarkProcessing moves a pending deck to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, id string) error {
	const query = `
UPDATE pitch_decks
SET status = $2
WHERE id = $1 AND status NOT IN ($3, $4)`

	res, err := r.DB.ExecContext(ctx, query, id, StatusProcessing, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.checkTransition(ctx, res, id)
}

// UpdateChecklistItems stores parsed checklist items.
func (r *PGRepo) UpdateChecklistItems(ctx context.Context, id string, items []checklist.Item) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal checklist items: %w", err)
	}

	const query = `UPDATE pitch_decks SET checklist_items = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, payload)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteAnalysis persists the result, section rows, and completed
// status in a single transaction.
func (r *PGRepo) CompleteAnalysis(ctx context.Context, id string, result analysis.Result, sections []analysis.Section, analyzedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const updateDeck = `
UPDATE pitch_decks
SET status = $2, sso_score = $3, recommendation = $4, analysis = $5,
    error_message = '', analyzed_at = $6
WHERE id = $1 AND status = $7`

	res, err := tx.ExecContext(ctx, updateDeck, id, StatusCompleted, result.OverallScore/100, result.Recommendation, payload, analyzedAt, StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: deck %s not in processing", ErrTerminalState, id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_analysis WHERE deck_id = $1`, id); err != nil {
		return err
	}

	const insertSection = `
INSERT INTO deck_analysis (deck_id, section_name, section_score, feedback, strengths, improvements, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for i, section := range sections {
		strengths, err := json.Marshal(section.Strengths)
		if err != nil {
			return fmt.Errorf("marshal strengths: %w", err)
		}
		improvements, err := json.Marshal(section.Improvements)
		if err != nil {
			return fmt.Errorf("marshal improvements: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertSection, id, section.SectionName, section.SectionScore/100, section.Feedback, strengths, improvements, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MarkFailed moves a processing deck to failed and clears section rows.
func (r *PGRepo) MarkFailed(ctx context.Context, id string, message string, failedAt time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE pitch_decks
SET status = $2, error_message = $3, analyzed_at = $4
WHERE id = $1 AND status NOT IN ($5, $6)`

	res, err := tx.ExecContext(ctx, query, id, StatusFailed, message, failedAt, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	if err := r.checkTransition(ctx, res, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_analysis WHERE deck_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListSections returns section rows in stored order.
func (r *PGRepo) ListSections(ctx context.Context, deckID string) ([]SectionScore, error) {
	const query = `
SELECT deck_id, section_name, section_score, feedback, strengths, improvements, position
FROM deck_analysis
WHERE deck_id = $1
ORDER BY position ASC`

	rows, err := r.DB.QueryContext(ctx, query, deckID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SectionScore{}
	for rows.Next() {
		var row SectionScore
		var strengths, improvements []byte
		if err := rows.Scan(
			&row.DeckID,
			&row.SectionName,
			&row.SectionScore,
			&row.Feedback,
			&strengths,
			&improvements,
			&row.Position,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(strengths, &row.Strengths); err != nil {
			return nil, fmt.Errorf("decode strengths: %w", err)
		}
		if err := json.Unmarshal(improvements, &row.Improvements); err != nil {
			return nil, fmt.Errorf("decode improvements: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ResetForReanalysis returns a terminal deck to pending.
func (r *PGRepo) ResetForReanalysis(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
UPDATE pitch_decks
SET status = $2, sso_score = NULL, recommendation = '', analysis = NULL,
    error_message = '', analyzed_at = NULL
WHERE id = $1 AND status != $3`

	res, err := tx.ExecContext(ctx, query, id, StatusPending, StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		status, statusErr := r.currentStatus(ctx, id)
		if statusErr != nil {
			return statusErr
		}
		if status == StatusProcessing {
			return ErrAnalysisInProgress
		}
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM deck_analysis WHERE deck_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepo) checkTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	status, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrTerminalState, status)
}

func (r *PGRepo) currentStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM pitch_decks WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return status, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (Deck, error) {
	var deck Deck
	var companyID sql.NullString
	var ssoScore sql.NullFloat64
	var analysisPayload, checklistItems []byte
	var analyzedAt sql.NullTime

	err := row.Scan(
		&deck.ID,
		&companyID,
		&deck.FileName,
		&deck.StorageKey,
		&deck.ChecklistFileName,
		&deck.ChecklistKey,
		&deck.MimeType,
		&deck.SizeBytes,
		&deck.Status,
		&ssoScore,
		&deck.Recommendation,
		&analysisPayload,
		&checklistItems,
		&deck.ErrorMessage,
		&deck.UploadedAt,
		&analyzedAt,
	)
	if err != nil {
		return Deck{}, err
	}

	if companyID.Valid {
		deck.CompanyID = companyID.String
	}
	if ssoScore.Valid {
		score := ssoScore.Float64
		deck.SSOScore = &score
	}
	if len(analysisPayload) > 0 {
		deck.Analysis = analysisPayload
	}
	if len(checklistItems) > 0 {
		if err := json.Unmarshal(checklistItems, &deck.ChecklistItems); err != nil {
			return Deck{}, fmt.Errorf("decode checklist items: %w", err)
		}
	}
	if analyzedAt.Valid {
		deck.AnalyzedAt = &analyzedAt.Time
	}
	return deck, nil
}

var _ Repo = (*PGRepo)(nil)
