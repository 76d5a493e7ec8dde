package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
	if _, err := w.Write([]byte(doc)); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextUnsupportedExtension(t *testing.T) {
	_, err := Text([]byte("hello"), "deck.pptx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), ".pptx") {
		t.Fatalf("expected extension in error, got %q", err.Error())
	}
}

func TestTextDispatchIsCaseInsensitive(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Founder checklist</w:t></w:r></w:p>`)
	text, err := Text(data, "Checklist.DOCX")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(text, "Founder checklist") {
		t.Fatalf("expected extracted text, got %q", text)
	}
}

func TestTextDocxParagraphBreaks(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>Unit economics</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Growth metrics</w:t></w:r></w:p>`)
	text, err := Text(data, "checklist.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(text, "Unit economics\nGrowth metrics") {
		t.Fatalf("expected paragraph break, got %q", text)
	}
}

func TestTextDocxMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<w:styles/>"))
	zw.Close()

	if _, err := Text(buf.Bytes(), "checklist.docx"); err == nil {
		t.Fatalf("expected error for missing document.xml")
	}
}

func TestDeckTextInsufficientContent(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Too short</w:t></w:r></w:p>`)
	_, err := DeckText(data, "deck.docx")
	if !errors.Is(err, ErrInsufficientContent) {
		t.Fatalf("expected ErrInsufficientContent, got %v", err)
	}
}

func TestDeckTextSufficientContent(t *testing.T) {
	long := strings.Repeat("We solve a painful problem for mid-market teams. ", 5)
	data := buildDocx(t, `<w:p><w:r><w:t>`+long+`</w:t></w:r></w:p>`)
	text, err := DeckText(data, "deck.docx")
	if err != nil {
		t.Fatalf("DeckText: %v", err)
	}
	if len(text) < MinDeckTextChars {
		t.Fatalf("expected at least %d chars, got %d", MinDeckTextChars, len(text))
	}
}

type stubGenerator struct {
	out string
	err error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

func (s *stubGenerator) GenerateWithFile(ctx context.Context, prompt string, data []byte, mimeType string) (string, error) {
	if mimeType != "application/pdf" {
		return "", fmt.Errorf("unexpected mime type %q", mimeType)
	}
	return s.out, s.err
}

func (s *stubGenerator) Close() error { return nil }

func TestDescribeVisualsSuccess(t *testing.T) {
	gen := &stubGenerator{out: "Revenue chart shows 3x YoY growth."}
	got := DescribeVisuals(context.Background(), gen, []byte("%PDF-1.4"))
	if got != gen.out {
		t.Fatalf("expected generator output, got %q", got)
	}
}

func TestDescribeVisualsFallsBackOnError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("quota exceeded")}
	got := DescribeVisuals(context.Background(), gen, []byte("%PDF-1.4"))
	if got != VisualFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestDescribeVisualsFallsBackOnEmptyOutput(t *testing.T) {
	gen := &stubGenerator{out: "   "}
	got := DescribeVisuals(context.Background(), gen, []byte("%PDF-1.4"))
	if got != VisualFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestDescribeVisualsFallsBackWithoutGenerator(t *testing.T) {
	if got := DescribeVisuals(context.Background(), nil, []byte("%PDF-1.4")); got != VisualFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
}
