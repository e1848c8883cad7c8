// Package extract converts uploaded PDF bytes into plain text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"docchat/internal/util"

	"github.com/ledongthuc/pdf"
)

// Text extracts the plain text of one PDF document. It is a pure function
// over the input bytes; errors name the offending file so a batch caller can
// skip it and continue with siblings.
func Text(data []byte, filename string) (text string, err error) {
	// ledongthuc/pdf panics on some malformed xref tables; a corrupt upload
	// must surface as a per-file error, not kill the batch.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%s: malformed pdf: %v", filename, r)
		}
	}()
	if len(data) == 0 {
		return "", fmt.Errorf("%s: empty file: %w", filename, util.ErrNoExtractableText)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%s: open pdf: %w", filename, err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%s: extract pdf text: %w", filename, err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("%s: read extracted text: %w", filename, err)
	}
	text = util.SanitizeText(buf.String())
	if text == "" {
		return "", fmt.Errorf("%s: %w", filename, util.ErrNoExtractableText)
	}
	return text, nil
}
