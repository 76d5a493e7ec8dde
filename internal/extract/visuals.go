package extract

import (
	"context"
	_ "embed"
	"strings"

	"deckintel-backend/internal/ai"
	"deckintel-backend/internal/shared/telemetry"
)

//go:embed visual_prompt.txt
var visualPrompt string

// VisualFallback is returned when visual inspection cannot run. The
// analysis prompt embeds it verbatim so the model knows to lean on the
// extracted text alone.
const VisualFallback = "Visual analysis unavailable - text analysis will be used instead."

// DescribeVisuals sends the deck PDF to a vision-capable generator and
// returns a prose description of its charts and graphics. Failures are
// never fatal; callers always get usable text back.
func DescribeVisuals(ctx context.Context, gen ai.Generator, pdfData []byte) string {
	if gen == nil || len(pdfData) == 0 {
		return VisualFallback
	}

	out, err := gen.GenerateWithFile(ctx, visualPrompt, pdfData, "application/pdf")
	if err != nil {
		telemetry.Warn("visual analysis failed", map[string]any{"error": err.Error()})
		return VisualFallback
	}
	if strings.TrimSpace(out) == "" {
		return VisualFallback
	}
	return out
}
