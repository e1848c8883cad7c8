package util

// ChunkText slides a window of chunkSize runes across text, advancing by
// chunkSize-overlap each step. The final chunk may be shorter than chunkSize.
// Empty input yields zero chunks. Parameters are validated once at config
// load (0 < overlap < chunkSize), not per call.
func ChunkText(text string, chunkSize, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	out := make([]string, 0, len(runes)/step+1)
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}
