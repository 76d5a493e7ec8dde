// Package checklist turns founder checklist documents into structured
// requirement items via a single model call.
package checklist

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"deckintel-backend/internal/ai"
	"deckintel-backend/internal/shared/telemetry"
)

//go:embed prompt.txt
var parsePrompt string

// Item categories form a closed set; anything else coerces to CategoryOther.
const (
	CategoryUnitEconomics = "unit_economics"
	CategoryGrowthMetrics = "growth_metrics"
	CategoryPaymentInfo   = "payment_info"
	CategoryCompliance    = "compliance"
	CategoryOther         = "other"
)

const (
	PriorityCritical   = "critical"
	PriorityImportant  = "important"
	PriorityNiceToHave = "nice-to-have"
)

// Item is one requirement extracted from a founder checklist.
type Item struct {
	Category     string `json:"category"`
	Item         string `json:"item"`
	Description  string `json:"description"`
	Threshold    string `json:"threshold,omitempty"`
	ExternalLink string `json:"externalLink,omitempty"`
	Priority     string `json:"priority"`
}

// Parse extracts structured items from checklist text. Parsing is best
// effort: any provider or decode failure yields an empty slice so the
// deck analysis can proceed without checklist verification.
func Parse(ctx context.Context, gen ai.Generator, checklistText string) []Item {
	if gen == nil || strings.TrimSpace(checklistText) == "" {
		return []Item{}
	}

	prompt := strings.ReplaceAll(parsePrompt, "{{CHECKLIST_CONTENT}}", checklistText)
	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		telemetry.Warn("checklist parse call failed", map[string]any{"error": err.Error()})
		return []Item{}
	}

	items, err := decodeItems(raw)
	if err != nil {
		telemetry.Warn("checklist response not parsable", map[string]any{"error": err.Error()})
		return []Item{}
	}
	return normalizeItems(items)
}

// decodeItems locates the outermost JSON array in the model output and
// decodes it.
func decodeItems(raw string) ([]Item, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("decode checklist items: %w", err)
	}
	return items, nil
}

func normalizeItems(items []Item) []Item {
	coerced := 0
	out := make([]Item, 0, len(items))
	for _, it := range items {
		switch it.Category {
		case CategoryUnitEconomics, CategoryGrowthMetrics, CategoryPaymentInfo, CategoryCompliance, CategoryOther:
		default:
			it.Category = CategoryOther
			coerced++
		}
		switch it.Priority {
		case PriorityCritical, PriorityImportant, PriorityNiceToHave:
		default:
			it.Priority = PriorityImportant
		}
		if it.ExternalLink == "null" {
			it.ExternalLink = ""
		}
		out = append(out, it)
	}
	if coerced > 0 {
		telemetry.Warn("checklist categories coerced to other", map[string]any{"count": coerced})
	}
	return out
}
