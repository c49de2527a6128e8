package docpipe

import "strings"

// ChunkWords splits text into overlapping word-count windows.
//
// The window size is at least 1 and the overlap is clamped to [0, size-1],
// so the step (size - overlap) is always positive and chunking terminates
// even at maximum overlap. The start index advances by step; each window
// holds up to size words, and the last window may be shorter.
func ChunkWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
