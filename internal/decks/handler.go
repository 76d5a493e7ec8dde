package decks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"deckintel-backend/internal/analysis"
	"deckintel-backend/internal/companies"
	"deckintel-backend/internal/report"
	"deckintel-backend/internal/shared/server/middleware"
	"deckintel-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc           *Service
	Companies     *companies.Service
	MaxUploadSize int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, companiesSvc *companies.Service, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 15 << 20
	}
	return &Handler{Svc: svc, Companies: companiesSvc, MaxUploadSize: maxUploadSize}
}

// RegisterRoutes attaches deck routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/decks", h.upload)
	rg.POST("/decks/dual", h.uploadDual)
	rg.GET("/decks", h.list)
	rg.GET("/decks/:id", h.get)
	rg.POST("/decks/:id/analyze", h.analyze)
	rg.GET("/decks/:id/report/:format", h.downloadReport)
}

func (h *Handler) upload(c *gin.Context) {
	h.handleUpload(c, false)
}

func (h *Handler) uploadDual(c *gin.Context) {
	h.handleUpload(c, true)
}

func (h *Handler) handleUpload(c *gin.Context, requireChecklist bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize*2)

	deckHeader, err := c.FormFile("deck")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "deck file is required", nil)
		return
	}
	if deckHeader.Size > h.MaxUploadSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "deck exceeds the upload limit", nil)
		return
	}

	deckFile, err := deckHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read deck file", nil)
		return
	}
	defer deckFile.Close()

	var checklistName string
	var checklistReader io.Reader
	if requireChecklist {
		checklistHeader, err := c.FormFile("checklist")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "checklist file is required", nil)
			return
		}
		if checklistHeader.Size > h.MaxUploadSize {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "checklist exceeds the upload limit", nil)
			return
		}
		checklistFile, err := checklistHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read checklist file", nil)
			return
		}
		defer checklistFile.Close()
		checklistName = checklistHeader.Filename
		checklistReader = checklistFile
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	deck, err := h.Svc.Upload(ctx, c.PostForm("companyId"), deckHeader.Filename, deckFile, checklistName, checklistReader)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload deck", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(deck, nil))
}

func (h *Handler) get(c *gin.Context) {
	deck, sections, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondDeckError(c, err, "failed to fetch deck")
		return
	}
	respond.OK(c, toResponse(deck, sections))
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), c.Query("companyId"), c.Query("status"))
	if err != nil {
		h.respondDeckError(c, err, "failed to list decks")
		return
	}

	out := make([]DeckResponse, 0, len(items))
	for _, deck := range items {
		out = append(out, toResponse(deck, nil))
	}
	respond.OK(c, gin.H{"decks": out})
}

func (h *Handler) analyze(c *gin.Context) {
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	deck, err := h.Svc.Reanalyze(ctx, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrAnalysisInProgress):
			respond.Error(c, http.StatusConflict, "analysis_in_progress", "analysis already running for this deck", nil)
		default:
			h.respondDeckError(c, err, "failed to start analysis")
		}
		return
	}
	respond.JSON(c, http.StatusAccepted, toResponse(deck, nil))
}

func (h *Handler) downloadReport(c *gin.Context) {
	deck, sections, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondDeckError(c, err, "failed to fetch deck")
		return
	}

	data, err := h.reportData(c, deck, sections)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build report", nil)
		return
	}

	format := c.Param("format")
	var body []byte
	var contentType string
	switch format {
	case "txt":
		text, renderErr := report.Text(data)
		err, body, contentType = renderErr, []byte(text), "text/plain; charset=utf-8"
	case "md":
		md, renderErr := report.Markdown(data)
		err, body, contentType = renderErr, []byte(md), "text/markdown; charset=utf-8"
	case "docx":
		doc, renderErr := report.Document(data)
		err, body, contentType = renderErr, doc, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be txt, md, or docx", nil)
		return
	}
	if err != nil {
		if errors.Is(err, report.ErrAnalysisNotReady) {
			respond.Error(c, http.StatusConflict, "analysis_not_ready", "deck analysis has not completed", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render report", nil)
		return
	}

	fileName := fmt.Sprintf("deck_report_%s.%s", deck.ID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, contentType, body)
}

func (h *Handler) reportData(c *gin.Context, deck Deck, sections []SectionScore) (report.Data, error) {
	data := report.Data{
		DeckID:      deck.ID,
		FileName:    deck.FileName,
		CompanyName: "Unknown",
		Status:      deck.Status,
	}
	if deck.AnalyzedAt != nil {
		data.AnalyzedAt = *deck.AnalyzedAt
	}
	if deck.CompanyID != "" && h.Companies != nil {
		if company, err := h.Companies.Get(c.Request.Context(), deck.CompanyID); err == nil {
			data.CompanyName = company.Name
		}
	}

	if len(deck.Analysis) > 0 {
		if err := json.Unmarshal(deck.Analysis, &data.Analysis); err != nil {
			return report.Data{}, fmt.Errorf("decode stored analysis: %w", err)
		}
	}
	for _, row := range sections {
		data.Sections = append(data.Sections, analysis.Section{
			SectionName:  row.SectionName,
			SectionScore: row.SectionScore * 100,
			Feedback:     row.Feedback,
			Strengths:    row.Strengths,
			Improvements: row.Improvements,
		})
	}
	return data, nil
}

func (h *Handler) respondDeckError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "deck not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
