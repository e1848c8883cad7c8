package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"
)

// ExportCSV renders the session transcript as a row-per-message CSV
// artifact.
func (e *Engine) ExportCSV(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(sess.ChatHistory) == 0 {
		return nil, ErrNoTranscript
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Role", "Message", "Timestamp"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range sess.ChatHistory {
		if err := w.Write([]string{m.Role, m.Content, m.CreatedAt.Format(time.RFC3339)}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
