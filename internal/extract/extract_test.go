package extract

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// minimalPDF assembles a one-page PDF with a single text run, computing the
// xref offsets so the document parses cleanly.
func minimalPDF(text string) []byte {
	var buf bytes.Buffer
	offsets := make([]int, 6)
	obj := func(i int, body string) {
		offsets[i] = buf.Len()
		buf.WriteString(body)
	}
	buf.WriteString("%PDF-1.4\n")
	obj(1, "1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj(2, "2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	obj(3, "3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
		"/Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	obj(4, fmt.Sprintf("4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	obj(5, "5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestTextExtractsPlainText(t *testing.T) {
	got, err := Text(minimalPDF("Hello World"), "hello.pdf")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(got, "Hello World") {
		t.Fatalf("extracted text missing content, got: %q", got)
	}
}

func TestTextRejectsEmptyFile(t *testing.T) {
	_, err := Text(nil, "empty.pdf")
	if err == nil {
		t.Fatal("expected error for empty input")
	}
	if !strings.Contains(err.Error(), "empty.pdf") {
		t.Fatalf("error must name the offending file, got: %v", err)
	}
}

func TestTextRejectsNonPDFBytes(t *testing.T) {
	_, err := Text([]byte("plain text, not a pdf"), "notes.txt")
	if err == nil {
		t.Fatal("expected error for non-PDF content")
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Fatalf("error must name the offending file, got: %v", err)
	}
}

func TestTextRejectsTruncatedPDF(t *testing.T) {
	// A valid header followed by garbage exercises the parser failure path.
	_, err := Text([]byte("%PDF-1.7\ngarbage"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error for truncated PDF")
	}
}
