package analysis

import (
	"errors"
	"strings"
	"testing"
)

const validResponse = `{
  "overallAnalysis": {
    "problemScore": 80,
    "solutionScore": 75,
    "marketScore": 70,
    "tractionScore": 65,
    "teamScore": 85,
    "financialsScore": 60,
    "overallScore": 82,
    "strengths": ["Strong founding team"],
    "weaknesses": ["Unproven unit economics"],
    "keyInsights": ["Revenue concentrated in two customers"],
    "recommendation": "NEEDS_MORE_INFO - churn data missing",
    "visualInsights": ["Growth chart shows 3x YoY"]
  },
  "sections": [
    {"sectionName": "Problem & Solution", "sectionScore": 78, "feedback": "Clear pain point", "strengths": ["Specific ICP"], "improvements": ["Quantify cost of problem"]},
    {"sectionName": "Market Opportunity", "sectionScore": 70, "feedback": "Large TAM", "strengths": [], "improvements": []}
  ]
}`

func TestNormalizeValidResponse(t *testing.T) {
	result, sections, err := Normalize(validResponse)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.OverallScore != 82 {
		t.Fatalf("expected overallScore 82, got %v", result.OverallScore)
	}
	if !strings.HasPrefix(result.Recommendation, RecommendationNeedsMoreInfo) {
		t.Fatalf("unexpected recommendation %q", result.Recommendation)
	}
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].SectionName != "Problem & Solution" || sections[1].SectionName != "Market Opportunity" {
		t.Fatalf("section order not preserved: %v, %v", sections[0].SectionName, sections[1].SectionName)
	}
	if sections[1].Strengths == nil || sections[1].Improvements == nil {
		t.Fatalf("expected non-nil slices")
	}
	if result.ChecklistVerification != nil {
		t.Fatalf("expected nil checklistVerification when absent")
	}
}

func TestNormalizeStripsMarkdownFences(t *testing.T) {
	raw := "Here is the analysis:\n```json\n" + validResponse + "\n```\nHope this helps!"
	result, sections, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.OverallScore != 82 || len(sections) != 2 {
		t.Fatalf("unexpected result after fence strip: %v / %d sections", result.OverallScore, len(sections))
	}
}

func TestNormalizeRecoversFromCommentsAndDollarSigns(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 80, // articulated well
    "solutionScore": 75,
    "marketScore": 70, /* $10B TAM */
    "tractionScore": 65,
    "teamScore": 85,
    "financialsScore": 60,
    "overallScore": 72,
    "strengths": [], "weaknesses": [], "keyInsights": [],
    "recommendation": "PASS",
    "visualInsights": []
  },
  "sections": [
    {"sectionName": "Financials", "sectionScore": 60, "feedback": "ARR of 2M", "strengths": [], "improvements": []}
  ]
}`
	result, sections, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.OverallScore != 72 || len(sections) != 1 {
		t.Fatalf("unexpected recovery result: %v / %d sections", result.OverallScore, len(sections))
	}
}

func TestNormalizeProseFailsWithParseError(t *testing.T) {
	_, _, err := Normalize("I am unable to analyze this document, it appears to be empty.")
	if !errors.Is(err, ErrUnparsableResponse) {
		t.Fatalf("expected ErrUnparsableResponse, got %v", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if len(parseErr.Excerpt) > 300 {
		t.Fatalf("excerpt too long: %d", len(parseErr.Excerpt))
	}
}

func TestNormalizeMissingSectionsIsShapeError(t *testing.T) {
	raw := `{"overallAnalysis": {"problemScore": 1, "solutionScore": 1, "marketScore": 1, "tractionScore": 1, "teamScore": 1, "financialsScore": 1, "overallScore": 1}}`
	_, _, err := Normalize(raw)
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Fatalf("expected ErrInvalidResponseShape, got %v", err)
	}
}

func TestNormalizeEmptySectionsIsShapeError(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 80, "solutionScore": 75, "marketScore": 70,
    "tractionScore": 65, "teamScore": 85, "financialsScore": 60,
    "overallScore": 72
  },
  "sections": []
}`
	_, _, err := Normalize(raw)
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Fatalf("expected ErrInvalidResponseShape, got %v", err)
	}
	if !strings.Contains(err.Error(), "sections") {
		t.Fatalf("expected error to name sections, got %v", err)
	}
}

func TestNormalizeMissingOverallScoreIsShapeError(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 80, "solutionScore": 75, "marketScore": 70,
    "tractionScore": 65, "teamScore": 85, "financialsScore": 60
  },
  "sections": [{"sectionName": "Team", "sectionScore": 85, "feedback": "", "strengths": [], "improvements": []}]
}`
	_, _, err := Normalize(raw)
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Fatalf("expected ErrInvalidResponseShape, got %v", err)
	}
	if !strings.Contains(err.Error(), "overallScore") {
		t.Fatalf("expected error to name missing field, got %v", err)
	}
}

func TestNormalizeClampsScores(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 150, "solutionScore": -10, "marketScore": 70,
    "tractionScore": 65, "teamScore": 85, "financialsScore": 60,
    "overallScore": 101, "recommendation": "INVEST"
  },
  "sections": [{"sectionName": "Team", "sectionScore": 240, "feedback": "", "strengths": [], "improvements": []}]
}`
	result, sections, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if result.ProblemScore != 100 || result.SolutionScore != 0 || result.OverallScore != 100 {
		t.Fatalf("scores not clamped: %+v", result)
	}
	if sections[0].SectionScore != 100 {
		t.Fatalf("section score not clamped: %v", sections[0].SectionScore)
	}
	if result.Strengths == nil || result.Weaknesses == nil || result.KeyInsights == nil || result.VisualInsights == nil {
		t.Fatalf("expected non-nil list fields")
	}
}

func TestNormalizeChecklistVerificationCarried(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 80, "solutionScore": 75, "marketScore": 70,
    "tractionScore": 65, "teamScore": 85, "financialsScore": 60,
    "overallScore": 72, "recommendation": "INVEST",
    "checklistVerification": {
      "unitEconomicsComplete": true,
      "growthMetricsComplete": false,
      "paymentInfoComplete": true,
      "foundationalChecklistScore": 120,
      "missingItems": ["Retention cohort data"]
    }
  },
  "sections": [{"sectionName": "Team", "sectionScore": 85, "feedback": "", "strengths": [], "improvements": []}]
}`
	result, _, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cv := result.ChecklistVerification
	if cv == nil {
		t.Fatalf("expected checklistVerification")
	}
	if !cv.UnitEconomicsComplete || cv.GrowthMetricsComplete {
		t.Fatalf("booleans not carried: %+v", cv)
	}
	if cv.FoundationalChecklistScore != 100 {
		t.Fatalf("foundational score not clamped: %v", cv.FoundationalChecklistScore)
	}
	if cv.VerifiedItems == nil {
		t.Fatalf("expected non-nil verifiedItems")
	}
}

func TestNormalizeSectionMissingNameIsShapeError(t *testing.T) {
	raw := `{
  "overallAnalysis": {
    "problemScore": 80, "solutionScore": 75, "marketScore": 70,
    "tractionScore": 65, "teamScore": 85, "financialsScore": 60,
    "overallScore": 72
  },
  "sections": [{"sectionScore": 85, "feedback": ""}]
}`
	_, _, err := Normalize(raw)
	if !errors.Is(err, ErrInvalidResponseShape) {
		t.Fatalf("expected ErrInvalidResponseShape, got %v", err)
	}
}

func TestBuildEvaluationPromptDualVsSingle(t *testing.T) {
	dual := BuildEvaluationPrompt(EvalInput{
		DeckText:       "deck body",
		VisualAnalysis: "charts",
		ChecklistText:  "checklist body",
	})
	if !strings.Contains(dual, "checklistVerification") {
		t.Fatalf("dual prompt should request checklist verification")
	}
	if !strings.Contains(dual, "deck body") || !strings.Contains(dual, "checklist body") {
		t.Fatalf("dual prompt missing inputs")
	}

	single := BuildEvaluationPrompt(EvalInput{CompanyName: "Acme", DeckText: "deck body", VisualAnalysis: "charts"})
	if strings.Contains(single, "checklistVerification") {
		t.Fatalf("single prompt should not request checklist verification")
	}
	if !strings.Contains(single, "Acme") {
		t.Fatalf("single prompt missing company name")
	}
}
