package decks

import (
	"encoding/json"
	"time"

	"deckintel-backend/internal/checklist"
)

// DeckResponse is the outward-facing representation of a deck.
// SSOScore and section scores are reported on the 0-100 scale.
type DeckResponse struct {
	DeckID            string            `json:"deckId"`
	CompanyID         string            `json:"companyId,omitempty"`
	FileName          string            `json:"fileName"`
	ChecklistFileName string            `json:"checklistFileName,omitempty"`
	MimeType          string            `json:"mimeType"`
	SizeBytes         int64             `json:"sizeBytes"`
	Status            string            `json:"status"`
	SSOScore          *float64          `json:"ssoScore,omitempty"`
	Recommendation    string            `json:"recommendation,omitempty"`
	Analysis          json.RawMessage   `json:"analysis,omitempty"`
	ChecklistItems    []checklist.Item  `json:"checklistItems,omitempty"`
	Sections          []SectionResponse `json:"sections,omitempty"`
	ErrorMessage      string            `json:"errorMessage,omitempty"`
	UploadedAt        time.Time         `json:"uploadedAt"`
	AnalyzedAt        *time.Time        `json:"analyzedAt,omitempty"`
}

// SectionResponse is one evaluated section on the 0-100 scale.
type SectionResponse struct {
	SectionName  string   `json:"sectionName"`
	SectionScore float64  `json:"sectionScore"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

func toResponse(deck Deck, sections []SectionScore) DeckResponse {
	resp := DeckResponse{
		DeckID:            deck.ID,
		CompanyID:         deck.CompanyID,
		FileName:          deck.FileName,
		ChecklistFileName: deck.ChecklistFileName,
		MimeType:          deck.MimeType,
		SizeBytes:         deck.SizeBytes,
		Status:            deck.Status,
		Recommendation:    deck.Recommendation,
		ChecklistItems:    deck.ChecklistItems,
		ErrorMessage:      deck.ErrorMessage,
		UploadedAt:        deck.UploadedAt,
		AnalyzedAt:        deck.AnalyzedAt,
	}

	if deck.SSOScore != nil {
		scaled := *deck.SSOScore * 100
		resp.SSOScore = &scaled
	}
	if deck.Status == StatusCompleted {
		resp.Analysis = deck.Analysis
	}
	for _, row := range sections {
		resp.Sections = append(resp.Sections, SectionResponse{
			SectionName:  row.SectionName,
			SectionScore: row.SectionScore * 100,
			Feedback:     row.Feedback,
			Strengths:    row.Strengths,
			Improvements: row.Improvements,
		})
	}
	return resp
}
