package decks

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"deckintel-backend/internal/ai"
	"deckintel-backend/internal/companies"
	"deckintel-backend/internal/extract"
	"deckintel-backend/internal/shared/storage/object/local"
)

const validEvalResponse = `{
  "overallAnalysis": {
    "problemScore": 85,
    "solutionScore": 80,
    "marketScore": 78,
    "tractionScore": 75,
    "teamScore": 88,
    "financialsScore": 70,
    "overallScore": 82,
    "strengths": ["Experienced team"],
    "weaknesses": ["Thin financials"],
    "keyInsights": ["Strong wedge into a growing market"],
    "recommendation": "INVEST - strong team with early traction",
    "visualInsights": ["Revenue chart shows 20% MoM growth"]
  },
  "sections": [
    {"sectionName": "Problem & Solution", "sectionScore": 84, "feedback": "Clear pain point.", "strengths": ["Well framed"], "improvements": ["Quantify the cost"]},
    {"sectionName": "Market Opportunity", "sectionScore": 78, "feedback": "Large but crowded.", "strengths": [], "improvements": ["Name competitors"]},
    {"sectionName": "Team & Execution", "sectionScore": 88, "feedback": "Second-time founders.", "strengths": ["Domain depth"], "improvements": []}
  ]
}`

const validChecklistResponse = `[
  {"category": "unit_economics", "item": "LTV/CAC ratio", "description": "Must exceed 3x", "threshold": "3x", "externalLink": "", "priority": "critical"}
]`

// promptGenerator routes checklist-parse prompts and evaluation
// prompts to separate canned responses.
type promptGenerator struct {
	evalResp      string
	evalErr       error
	checklistResp string
	checklistErr  error

	evalCalls      int
	lastEvalPrompt string
}

func (g *promptGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	if strings.Contains(prompt, "You are parsing a founder checklist") {
		return g.checklistResp, g.checklistErr
	}
	g.evalCalls++
	g.lastEvalPrompt = prompt
	return g.evalResp, g.evalErr
}

func (g *promptGenerator) GenerateWithFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	_ = ctx
	_ = prompt
	_ = data
	_ = mimeType
	return "", errors.New("not used in tests")
}

func (g *promptGenerator) Close() error { return nil }

var _ ai.Generator = (*promptGenerator)(nil)

// stubExtraction replaces the PDF and DOCX extraction seams so tests
// do not need real document bytes.
func stubExtraction(t *testing.T) {
	t.Helper()
	origDeck, origText, origVisuals := extractDeckText, extractText, describeVisuals
	extractDeckText = func(data []byte, fileName string) (string, error) {
		_ = data
		_ = fileName
		return "Acme raises a seed round to fix broken logistics pricing.", nil
	}
	extractText = func(data []byte, fileName string) (string, error) {
		_ = data
		_ = fileName
		return "Founders must show LTV/CAC above 3x.", nil
	}
	describeVisuals = func(ctx context.Context, gen ai.Generator, pdfData []byte) string {
		_ = ctx
		_ = gen
		_ = pdfData
		return extract.VisualFallback
	}
	t.Cleanup(func() {
		extractDeckText, extractText, describeVisuals = origDeck, origText, origVisuals
	})
}

func setupService(t *testing.T, gen ai.Generator, withChecklist bool) (*Service, *MemoryRepo, string) {
	t.Helper()
	store := local.New(t.TempDir())
	repo := NewMemoryRepo()

	deckKey, size, mimeType, err := store.Save(context.Background(), "unassigned", "deck.pdf", bytes.NewReader([]byte("%PDF-1.4 fake deck")))
	if err != nil {
		t.Fatalf("save deck: %v", err)
	}

	deck := Deck{
		ID:         "deck-1",
		FileName:   "deck.pdf",
		StorageKey: deckKey,
		MimeType:   mimeType,
		SizeBytes:  size,
		Status:     StatusPending,
		UploadedAt: time.Now().UTC(),
	}
	if withChecklist {
		checklistKey, _, _, err := store.Save(context.Background(), "unassigned", "checklist.docx", bytes.NewReader([]byte("fake checklist")))
		if err != nil {
			t.Fatalf("save checklist: %v", err)
		}
		deck.ChecklistFileName = "checklist.docx"
		deck.ChecklistKey = checklistKey
	}
	if err := repo.Create(context.Background(), deck); err != nil {
		t.Fatalf("create deck: %v", err)
	}

	svc := NewService(repo, companies.NewMemoryRepo(), store, gen)
	return svc, repo, deck.ID
}

func TestProcessDeckCompletes(t *testing.T) {
	stubExtraction(t)
	svc, repo, deckID := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if got.SSOScore == nil || *got.SSOScore != 0.82 {
		t.Fatalf("expected stored score 0.82, got %v", got.SSOScore)
	}
	if got.AnalyzedAt == nil {
		t.Fatalf("expected analyzed_at to be set")
	}
	if len(got.Analysis) == 0 {
		t.Fatalf("expected analysis payload to be stored")
	}

	sections, err := repo.ListSections(context.Background(), deckID)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[0].SectionName != "Problem & Solution" || sections[2].SectionName != "Team & Execution" {
		t.Fatalf("sections out of order: %q, %q", sections[0].SectionName, sections[2].SectionName)
	}
	if sections[0].SectionScore != 0.84 {
		t.Fatalf("expected first section score 0.84, got %v", sections[0].SectionScore)
	}
}

func TestProcessDeckFailsOnProseResponse(t *testing.T) {
	stubExtraction(t)
	svc, repo, deckID := setupService(t, &promptGenerator{evalResp: "I cannot evaluate this deck, sorry."}, false)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}
	if got.ErrorMessage == "" {
		t.Fatalf("expected error message on failure")
	}
	sections, err := repo.ListSections(context.Background(), deckID)
	if err != nil {
		t.Fatalf("list sections: %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("expected no sections after failure, got %d", len(sections))
	}
}

func TestProcessDeckFailsOnMissingSections(t *testing.T) {
	stubExtraction(t)
	noSections := `{"overallAnalysis": {"problemScore": 80, "solutionScore": 80, "marketScore": 80, "tractionScore": 80, "teamScore": 80, "financialsScore": 80, "overallScore": 80, "recommendation": "PASS"}}`
	svc, repo, deckID := setupService(t, &promptGenerator{evalResp: noSections}, false)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}
}

func TestProcessDeckFailsOnProviderError(t *testing.T) {
	stubExtraction(t)
	svc, repo, deckID := setupService(t, &promptGenerator{evalErr: errors.New("quota exceeded")}, false)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "quota exceeded") {
		t.Fatalf("expected error message to carry the cause, got %q", got.ErrorMessage)
	}
}

func TestChecklistParseFailureDoesNotFailDeck(t *testing.T) {
	stubExtraction(t)
	gen := &promptGenerator{evalResp: validEvalResponse, checklistErr: errors.New("checklist model down")}
	svc, repo, deckID := setupService(t, gen, true)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completion despite checklist failure, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if got.ChecklistItems == nil || len(got.ChecklistItems) != 0 {
		t.Fatalf("expected empty checklist items, got %#v", got.ChecklistItems)
	}
}

func TestChecklistExtractFailureDegradesToSingleAnalysis(t *testing.T) {
	stubExtraction(t)
	extractText = func(data []byte, fileName string) (string, error) {
		_ = data
		_ = fileName
		return "", extract.ErrInsufficientContent
	}
	gen := &promptGenerator{evalResp: validEvalResponse, checklistResp: validChecklistResponse}
	svc, repo, deckID := setupService(t, gen, true)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if strings.Contains(gen.lastEvalPrompt, "checklistVerification") {
		t.Fatalf("expected single-document prompt when checklist text is unavailable")
	}
}

func TestChecklistItemsStoredOnDualAnalysis(t *testing.T) {
	stubExtraction(t)
	gen := &promptGenerator{evalResp: validEvalResponse, checklistResp: validChecklistResponse}
	svc, repo, deckID := setupService(t, gen, true)

	svc.processDeck(context.Background(), deckID)

	got, err := repo.GetByID(context.Background(), deckID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s (error %q)", got.Status, got.ErrorMessage)
	}
	if len(got.ChecklistItems) != 1 || got.ChecklistItems[0].Item != "LTV/CAC ratio" {
		t.Fatalf("expected parsed checklist item, got %#v", got.ChecklistItems)
	}
	if !strings.Contains(gen.lastEvalPrompt, "checklistVerification") {
		t.Fatalf("expected dual-document prompt when checklist is present")
	}
}

func TestMarkProcessingRefusedAfterCompletion(t *testing.T) {
	stubExtraction(t)
	svc, repo, deckID := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	svc.processDeck(context.Background(), deckID)

	if err := repo.MarkProcessing(context.Background(), deckID); !errors.Is(err, ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestReanalyzeResetsCompletedDeck(t *testing.T) {
	stubExtraction(t)
	gen := &promptGenerator{evalResp: validEvalResponse}
	svc, _, deckID := setupService(t, gen, false)

	svc.processDeck(context.Background(), deckID)

	deck, err := svc.Reanalyze(context.Background(), deckID)
	if err != nil {
		t.Fatalf("reanalyze: %v", err)
	}
	if deck.Status != StatusPending {
		t.Fatalf("expected pending after reset, got %s", deck.Status)
	}

	got, err := svc.AwaitCompletion(context.Background(), deckID, 5*time.Millisecond, 200)
	if err != nil {
		t.Fatalf("await completion: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed after reanalysis, got %s", got.Status)
	}
	if gen.evalCalls != 2 {
		t.Fatalf("expected 2 evaluation calls, got %d", gen.evalCalls)
	}
}

func TestReanalysisUsesCachedDeckText(t *testing.T) {
	stubExtraction(t)
	extractions := 0
	extractDeckText = func(data []byte, fileName string) (string, error) {
		_ = data
		_ = fileName
		extractions++
		return "Acme raises a seed round to fix broken logistics pricing.", nil
	}
	gen := &promptGenerator{evalResp: validEvalResponse}
	svc, _, deckID := setupService(t, gen, false)

	svc.processDeck(context.Background(), deckID)

	if _, err := svc.Reanalyze(context.Background(), deckID); err != nil {
		t.Fatalf("reanalyze: %v", err)
	}
	if _, err := svc.AwaitCompletion(context.Background(), deckID, 5*time.Millisecond, 200); err != nil {
		t.Fatalf("await completion: %v", err)
	}
	if extractions != 1 {
		t.Fatalf("expected cached text to skip re-extraction, got %d extractions", extractions)
	}
	if gen.evalCalls != 2 {
		t.Fatalf("expected 2 evaluation calls, got %d", gen.evalCalls)
	}
}

func TestReanalyzeRefusedWhileInFlight(t *testing.T) {
	stubExtraction(t)
	svc, _, deckID := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	svc.mu.Lock()
	svc.inFlight[deckID] = struct{}{}
	svc.mu.Unlock()

	if _, err := svc.Reanalyze(context.Background(), deckID); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("expected ErrAnalysisInProgress, got %v", err)
	}
}

func TestAwaitCompletionTimesOut(t *testing.T) {
	stubExtraction(t)
	svc, _, deckID := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	if _, err := svc.AwaitCompletion(context.Background(), deckID, time.Millisecond, 3); !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout, got %v", err)
	}
}

func TestAwaitCompletionClampsPollInterval(t *testing.T) {
	stubExtraction(t)
	svc, _, deckID := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	if _, err := svc.AwaitCompletion(context.Background(), deckID, 0, 2); !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout with zero interval, got %v", err)
	}
}

func TestUploadRejectsInvalidInput(t *testing.T) {
	stubExtraction(t)
	svc, _, _ := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	if _, err := svc.Upload(context.Background(), "", "deck.pptx", bytes.NewReader([]byte("x")), "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-PDF deck, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "", "deck.pdf", bytes.NewReader([]byte("x")), "checklist.xlsx", bytes.NewReader([]byte("y"))); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unsupported checklist, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), "no-such-company", "deck.pdf", bytes.NewReader([]byte("x")), "", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown company, got %v", err)
	}
}

func TestUploadRunsPipelineToCompletion(t *testing.T) {
	stubExtraction(t)
	svc, _, _ := setupService(t, &promptGenerator{evalResp: validEvalResponse}, false)

	deck, err := svc.Upload(context.Background(), "", "pitch.pdf", bytes.NewReader([]byte("%PDF-1.4 upload")), "", nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	got, err := svc.AwaitCompletion(context.Background(), deck.ID, 5*time.Millisecond, 200)
	if err != nil {
		t.Fatalf("await completion: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (error %q)", got.Status, got.ErrorMessage)
	}
}
