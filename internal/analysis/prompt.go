package analysis

import (
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"

	"deckintel-backend/internal/checklist"
)

var (
	//go:embed prompts/dual_evaluation.txt
	dualEvaluationPrompt string
	//go:embed prompts/single_evaluation.txt
	singleEvaluationPrompt string
)

// EvalInput carries everything the evaluation prompt embeds.
type EvalInput struct {
	CompanyName    string
	DeckText       string
	VisualAnalysis string
	ChecklistText  string
	ChecklistItems []checklist.Item
}

// BuildEvaluationPrompt renders the due diligence prompt. With no
// checklist text the single-document variant is used and checklist
// verification is omitted from the requested schema.
func BuildEvaluationPrompt(in EvalInput) string {
	companyName := strings.TrimSpace(in.CompanyName)
	if companyName == "" {
		companyName = "the company"
	}

	if strings.TrimSpace(in.ChecklistText) == "" {
		return strings.NewReplacer(
			"{{COMPANY_NAME}}", companyName,
			"{{DECK_TEXT}}", in.DeckText,
			"{{VISUAL_ANALYSIS}}", in.VisualAnalysis,
		).Replace(singleEvaluationPrompt)
	}

	itemsJSON, err := json.MarshalIndent(in.ChecklistItems, "", "  ")
	if err != nil {
		itemsJSON = []byte("[]")
	}

	return strings.NewReplacer(
		"{{DECK_TEXT}}", in.DeckText,
		"{{VISUAL_ANALYSIS}}", in.VisualAnalysis,
		"{{CHECKLIST_TEXT}}", in.ChecklistText,
		"{{CHECKLIST_ITEM_COUNT}}", strconv.Itoa(len(in.ChecklistItems)),
		"{{CHECKLIST_ITEMS_JSON}}", string(itemsJSON),
	).Replace(dualEvaluationPrompt)
}
