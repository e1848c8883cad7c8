package util

import "testing"

func TestSanitizeTextStripsControls(t *testing.T) {
	in := "hello\x00 world\x01\n\tnext"
	got := SanitizeText(in)
	if got != "hello world\n\tnext" {
		t.Fatalf("unexpected sanitize output: %q", got)
	}
}

func TestSanitizeTextEmpty(t *testing.T) {
	if got := SanitizeText(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("short", 50); got != "short" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
	got := TruncateRunes("abcdefghij", 4)
	if got != "abcd..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
