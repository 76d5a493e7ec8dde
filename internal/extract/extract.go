// Package extract pulls plain text out of uploaded deck and checklist
// documents.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MinDeckTextChars is the minimum amount of extracted text a primary
// deck must yield before analysis is worth running.
const MinDeckTextChars = 100

var (
	// ErrInsufficientContent indicates the deck produced too little text
	// to analyze, typically an image-only PDF.
	ErrInsufficientContent = errors.New("insufficient text content")

	// ErrUnsupportedFormat indicates the file extension is not one the
	// pipeline knows how to extract.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Text extracts plain text from an in-memory document, dispatching on
// the file extension (case-insensitive).
func Text(data []byte, fileName string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".pdf":
		return extractPDF(data)
	case ".docx", ".doc":
		return extractDOCX(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// DeckText extracts the primary deck's text and enforces the analysis
// minimum. Decks that come back shorter than MinDeckTextChars are
// almost always scanned or image-only PDFs.
func DeckText(data []byte, fileName string) (string, error) {
	text, err := Text(data, fileName)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) < MinDeckTextChars {
		return "", ErrInsufficientContent
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw)), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
