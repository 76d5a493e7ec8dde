// Package analysis builds the due diligence evaluation prompt and
// normalizes the model's JSON response into typed results.
package analysis

// Recommendation values the evaluation prompt asks the model to choose
// from. The model appends a justification after the keyword, so
// callers match by prefix.
const (
	RecommendationInvest        = "INVEST"
	RecommendationPass          = "PASS"
	RecommendationNeedsMoreInfo = "NEEDS_MORE_INFO"
)

// Result is the overall evaluation of a pitch deck. All scores are on
// the model's 0-100 scale; persistence converts to 0-1.
type Result struct {
	ProblemScore    float64  `json:"problemScore"`
	SolutionScore   float64  `json:"solutionScore"`
	MarketScore     float64  `json:"marketScore"`
	TractionScore   float64  `json:"tractionScore"`
	TeamScore       float64  `json:"teamScore"`
	FinancialsScore float64  `json:"financialsScore"`
	OverallScore    float64  `json:"overallScore"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	KeyInsights     []string `json:"keyInsights"`
	Recommendation  string   `json:"recommendation"`

	// ChecklistVerification is nil for single-document analyses.
	ChecklistVerification *ChecklistVerification `json:"checklistVerification,omitempty"`
	VisualInsights        []string               `json:"visualInsights"`
}

// ChecklistVerification reports how the deck held up against the
// founder checklist.
type ChecklistVerification struct {
	UnitEconomicsComplete      bool     `json:"unitEconomicsComplete"`
	GrowthMetricsComplete      bool     `json:"growthMetricsComplete"`
	PaymentInfoComplete        bool     `json:"paymentInfoComplete"`
	FoundationalChecklistScore float64  `json:"foundationalChecklistScore"`
	MissingItems               []string `json:"missingItems"`
	VerifiedItems              []string `json:"verifiedItems"`
}

// Section is one named evaluation area. Section names are chosen by
// the model; order follows the response.
type Section struct {
	SectionName  string   `json:"sectionName"`
	SectionScore float64  `json:"sectionScore"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}
