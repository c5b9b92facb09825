package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "resume.pdf", want: "resume.pdf"},
		{in: "  my cv.docx ", want: "my cv.docx"},
		{in: "a/b\\c.pdf", want: "a_b_c.pdf"},
		{in: "tab\tname.pdf", want: "tabname.pdf"},
		{in: "ｒｅｓｕｍｅ.pdf", want: "resume.pdf"},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileNameRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "../etc/passwd", "..", "\x00"} {
		if _, err := SanitizeFileName(in); !errors.Is(err, ErrInvalidFileName) {
			t.Fatalf("SanitizeFileName(%q): expected ErrInvalidFileName, got %v", in, err)
		}
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 100) + ".docx")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if len(got) > MaxFileNameLength {
		t.Fatalf("expected at most %d bytes, got %d", MaxFileNameLength, len(got))
	}
	if !strings.HasSuffix(got, ".docx") {
		t.Fatalf("expected extension kept, got %q", got)
	}
	if !strings.HasPrefix(got, "é") {
		t.Fatalf("expected valid utf-8 prefix, got %q", got)
	}
}
