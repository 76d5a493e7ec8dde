package object

import (
	"context"
	"io"
	"path/filepath"
	"strings"
)

// Store defines the contract for saving and retrieving binary objects.
// Uploads are namespaced by the owning company.
type Store interface {
	Save(ctx context.Context, companyID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".md":   "text/markdown; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
}

// ContentTypeFor resolves a MIME type for deck-pipeline file names.
// Sniffing misreports DOCX as application/zip, so the extension wins
// for the formats the pipeline accepts.
func ContentTypeFor(fileName string, sniffed string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return ct
	}
	if sniffed != "" {
		return sniffed
	}
	return "application/octet-stream"
}
