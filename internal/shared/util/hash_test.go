package util

import "testing"

func TestOwnerKey(t *testing.T) {
	got := OwnerKey("jane@example.com")
	if got != OwnerKey(" Jane@Example.com ") {
		t.Fatalf("expected case and space to be ignored, got %s", got)
	}
	if got == OwnerKey("john@example.com") {
		t.Fatalf("expected distinct owners to differ")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("key contains non-hex character: %c", ch)
		}
	}
	if len(got) != 32 {
		t.Fatalf("expected 32 hex characters, got %d", len(got))
	}
}
