package decks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"deckintel-backend/internal/ai"
	"deckintel-backend/internal/analysis"
	"deckintel-backend/internal/checklist"
	"deckintel-backend/internal/companies"
	"deckintel-backend/internal/extract"
	"deckintel-backend/internal/shared/metrics"
	"deckintel-backend/internal/shared/storage/object"
	"deckintel-backend/internal/shared/telemetry"
)

var (
	extractDeckText = extract.DeckText
	extractText     = extract.Text
	describeVisuals = extract.DescribeVisuals
)

var deckExtensions = map[string]bool{
	".pdf": true,
}

var checklistExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
}

// Service contains business logic for deck intake and analysis.
type Service struct {
	Repo      Repo
	Companies companies.Repo
	Store     object.Store
	Gen       ai.Generator

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService constructs a Service.
func NewService(repo Repo, companiesRepo companies.Repo, store object.Store, gen ai.Generator) *Service {
	return &Service{
		Repo:      repo,
		Companies: companiesRepo,
		Store:     store,
		Gen:       gen,
		inFlight:  make(map[string]struct{}),
	}
}

// Upload stores a pitch deck, records it as pending, and kicks off
// asynchronous analysis. The checklist reader may be nil.
func (s *Service) Upload(ctx context.Context, companyID, deckName string, deck io.Reader, checklistName string, checklistFile io.Reader) (Deck, error) {
	if deckName == "" || deck == nil {
		return Deck{}, fmt.Errorf("%w: deck file is required", ErrInvalidInput)
	}
	if !deckExtensions[strings.ToLower(filepath.Ext(deckName))] {
		return Deck{}, fmt.Errorf("%w: deck must be a PDF", ErrInvalidInput)
	}
	if checklistFile != nil && !checklistExtensions[strings.ToLower(filepath.Ext(checklistName))] {
		return Deck{}, fmt.Errorf("%w: checklist must be PDF, DOCX, or DOC", ErrInvalidInput)
	}
	if companyID != "" && s.Companies != nil {
		if _, err := s.Companies.GetByID(ctx, companyID); err != nil {
			if errors.Is(err, companies.ErrNotFound) {
				return Deck{}, fmt.Errorf("%w: unknown company", ErrInvalidInput)
			}
			return Deck{}, err
		}
	}

	ownerKey := companyID
	if ownerKey == "" {
		ownerKey = "unassigned"
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, ownerKey, deckName, deck)
	if err != nil {
		return Deck{}, fmt.Errorf("store deck: %w", err)
	}

	var checklistKey string
	if checklistFile != nil {
		checklistKey, _, _, err = s.Store.Save(ctx, ownerKey, checklistName, checklistFile)
		if err != nil {
			return Deck{}, fmt.Errorf("store checklist: %w", err)
		}
	} else {
		checklistName = ""
	}

	d := Deck{
		ID:                uuid.NewString(),
		CompanyID:         companyID,
		FileName:          deckName,
		StorageKey:        storageKey,
		ChecklistFileName: checklistName,
		ChecklistKey:      checklistKey,
		MimeType:          mimeType,
		SizeBytes:         size,
		Status:            StatusPending,
		UploadedAt:        time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, d); err != nil {
		return Deck{}, err
	}
	metrics.IncDeckUploads()

	s.dispatch(ctx, d.ID)
	return d, nil
}

// Get returns a deck with its section rows.
func (s *Service) Get(ctx context.Context, id string) (Deck, []SectionScore, error) {
	if id == "" {
		return Deck{}, nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	deck, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Deck{}, nil, err
	}
	sections, err := s.Repo.ListSections(ctx, id)
	if err != nil {
		return Deck{}, nil, err
	}
	return deck, sections, nil
}

// List returns decks filtered by company and status, newest first.
func (s *Service) List(ctx context.Context, companyID, status string) ([]Deck, error) {
	if status != "" {
		switch status {
		case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
	}
	return s.Repo.List(ctx, companyID, status)
}

// Reanalyze resets a finished deck and runs the pipeline again.
func (s *Service) Reanalyze(ctx context.Context, id string) (Deck, error) {
	if id == "" {
		return Deck{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if s.isInFlight(id) {
		return Deck{}, ErrAnalysisInProgress
	}
	if err := s.Repo.ResetForReanalysis(ctx, id); err != nil {
		return Deck{}, err
	}
	deck, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Deck{}, err
	}
	s.dispatch(ctx, id)
	return deck, nil
}

// AwaitCompletion polls until the deck reaches a terminal state.
// Exhausting maxAttempts returns ErrAwaitTimeout, distinct from the
// deck itself failing.
func (s *Service) AwaitCompletion(ctx context.Context, id string, pollInterval time.Duration, maxAttempts int) (Deck, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		deck, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			return Deck{}, err
		}
		if IsTerminal(deck.Status) {
			return deck, nil
		}
		select {
		case <-ctx.Done():
			return Deck{}, ctx.Err()
		case <-ticker.C:
		}
	}
	return Deck{}, ErrAwaitTimeout
}

// dispatch starts the analysis job unless one is already running for
// this deck.
func (s *Service) dispatch(ctx context.Context, id string) {
	s.mu.Lock()
	if _, running := s.inFlight[id]; running {
		s.mu.Unlock()
		return
	}
	s.inFlight[id] = struct{}{}
	s.mu.Unlock()

	go func(jobCtx context.Context) {
		defer s.release(id)
		s.processDeck(jobCtx, id)
	}(backgroundWithRequestID(ctx))
}

func (s *Service) isInFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, running := s.inFlight[id]
	return running
}

func (s *Service) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// processDeck runs the full analysis pipeline for one deck. Errors
// never escape; they land in the deck row as a failed status.
func (s *Service) processDeck(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			s.failDeck(ctx, id, "", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, id); err != nil {
		s.failDeck(ctx, id, "", fmt.Errorf("set processing failed: %w", err), &startedAt)
		return
	}

	deck, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		s.failDeck(ctx, id, "", fmt.Errorf("deck lookup: %w", err), &startedAt)
		return
	}
	metrics.IncDeckAnalysisStarted()
	telemetry.Info("deck.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"deck_id":           deck.ID,
		"company_id":        deck.CompanyID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	if s.Store == nil {
		s.failDeck(ctx, id, deck.CompanyID, errors.New("missing object store"), &startedAt)
		return
	}
	if s.Gen == nil {
		s.failDeck(ctx, id, deck.CompanyID, errors.New("missing ai generator"), &startedAt)
		return
	}

	deckData, err := s.loadObject(ctx, deck.StorageKey)
	if err != nil {
		s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("load deck key=%s: %w", deck.StorageKey, err), &startedAt)
		return
	}

	deckText := s.cachedDeckText(ctx, deck.StorageKey)
	if deckText == "" {
		deckText, err = extractDeckText(deckData, deck.FileName)
		if err != nil {
			s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("extract deck %s: %w", deck.FileName, err), &startedAt)
			return
		}
		s.cacheDeckText(ctx, deck.StorageKey, deckText)
	}

	visualAnalysis := describeVisuals(ctx, s.Gen, deckData)

	// Checklist problems degrade to a single-document analysis
	// instead of failing the job.
	var checklistText string
	var items []checklist.Item
	if deck.ChecklistKey != "" {
		checklistText = s.loadChecklistText(ctx, deck)
		items = checklist.Parse(ctx, s.Gen, checklistText)
		if err := s.Repo.UpdateChecklistItems(ctx, id, items); err != nil {
			s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("store checklist items: %w", err), &startedAt)
			return
		}
	}

	prompt := analysis.BuildEvaluationPrompt(analysis.EvalInput{
		CompanyName:    s.companyName(ctx, deck.CompanyID),
		DeckText:       deckText,
		VisualAnalysis: visualAnalysis,
		ChecklistText:  checklistText,
		ChecklistItems: items,
	})

	raw, err := s.Gen.Generate(ctx, prompt)
	if err != nil {
		s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("ai evaluate: %w", err), &startedAt)
		return
	}

	result, sections, err := analysis.Normalize(raw)
	if err != nil {
		s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("ai output invalid: %w", err), &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.CompleteAnalysis(ctx, id, result, sections, completedAt); err != nil {
		s.failDeck(ctx, id, deck.CompanyID, fmt.Errorf("store analysis result: %w", err), &startedAt)
		return
	}

	metrics.IncDeckAnalysisCompleted()
	metrics.ObserveDeckAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("deck.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"deck_id":           deck.ID,
		"company_id":        deck.CompanyID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"overall_score":     result.OverallScore,
		"sections":          len(sections),
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) failDeck(ctx context.Context, id, companyID string, err error, startedAt *time.Time) {
	msg := sanitizeError(err)
	failedAt := time.Now().UTC()
	if updateErr := s.Repo.MarkFailed(context.Background(), id, msg, failedAt); updateErr != nil {
		telemetry.Error("deck.fail_update", map[string]any{
			"deck_id": id,
			"error":   updateErr.Error(),
			"cause":   msg,
		})
	}
	metrics.IncDeckAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveDeckAnalysisDurationMs(durationMs(startedAt, &failedAt))
	}
	telemetry.Info("deck.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"deck_id":           id,
		"company_id":        companyID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             msg,
		"duration_ms":       durationMs(startedAt, &failedAt),
	})
}

func (s *Service) loadObject(ctx context.Context, key string) ([]byte, error) {
	body, err := s.Store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// Extracted deck text is cached next to the binary so re-analysis
// skips PDF extraction.
const extractedTextSuffix = ".extracted.txt"

func (s *Service) cachedDeckText(ctx context.Context, storageKey string) string {
	body, err := s.Store.Open(ctx, storageKey+extractedTextSuffix)
	if err != nil {
		return ""
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return ""
	}
	return string(data)
}

func (s *Service) cacheDeckText(ctx context.Context, storageKey, text string) {
	if _, err := s.Store.SaveWithKey(ctx, storageKey+extractedTextSuffix, "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		telemetry.Warn("extracted text cache failed", map[string]any{
			"key":   storageKey,
			"error": err.Error(),
		})
	}
}

func (s *Service) loadChecklistText(ctx context.Context, deck Deck) string {
	data, err := s.loadObject(ctx, deck.ChecklistKey)
	if err != nil {
		telemetry.Warn("checklist load failed", map[string]any{
			"deck_id": deck.ID,
			"key":     deck.ChecklistKey,
			"error":   err.Error(),
		})
		return ""
	}
	text, err := extractText(data, deck.ChecklistFileName)
	if err != nil {
		telemetry.Warn("checklist extract failed", map[string]any{
			"deck_id": deck.ID,
			"file":    deck.ChecklistFileName,
			"error":   err.Error(),
		})
		return ""
	}
	return text
}

func (s *Service) companyName(ctx context.Context, companyID string) string {
	if companyID == "" || s.Companies == nil {
		return ""
	}
	company, err := s.Companies.GetByID(ctx, companyID)
	if err != nil {
		return ""
	}
	return company.Name
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
