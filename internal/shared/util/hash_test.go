package util

import "testing"

func TestHashOwnerKey(t *testing.T) {
	id := "company:12345"
	got := HashOwnerKey(id)
	if got != HashOwnerKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := SanitizeFileName("   "); err == nil {
		t.Fatalf("expected empty name to be rejected")
	}
	got, err := SanitizeFileName("q3/deck v2.pdf")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "q3_deck v2.pdf" {
		t.Fatalf("unexpected sanitized name: %s", got)
	}
}
