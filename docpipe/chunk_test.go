package docpipe

import (
	"fmt"
	"strings"
	"testing"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunkWordsWindowStarts(t *testing.T) {
	// 20 words, size 8, overlap 2 → step 6 → starts at 0, 6, 12, 18.
	chunks := ChunkWords(words(20), 8, 2)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %v", len(chunks), chunks)
	}
	wantStarts := []string{"w0", "w6", "w12", "w18"}
	for i, chunk := range chunks {
		first := strings.Fields(chunk)[0]
		if first != wantStarts[i] {
			t.Errorf("chunk %d starts at %s, want %s", i, first, wantStarts[i])
		}
		if n := len(strings.Fields(chunk)); n > 8 {
			t.Errorf("chunk %d has %d words, want <= 8", i, n)
		}
	}
	if last := chunks[len(chunks)-1]; len(strings.Fields(last)) != 2 {
		t.Errorf("last chunk = %q, want 2 words", last)
	}
}

func TestChunkWordsMaxOverlapTerminates(t *testing.T) {
	// overlap = size-1 forces step 1; must still terminate.
	chunks := ChunkWords(words(10), 4, 3)
	if len(chunks) != 10 {
		t.Fatalf("expected 10 chunks with step 1, got %d", len(chunks))
	}
}

func TestChunkWordsOverlapClamped(t *testing.T) {
	// overlap >= size is clamped to size-1, never a zero or negative step.
	chunks := ChunkWords(words(5), 2, 9)
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks after clamping, got %d", len(chunks))
	}
}

func TestChunkWordsEdges(t *testing.T) {
	if got := ChunkWords("", 8, 2); got != nil {
		t.Errorf("empty text should yield no chunks, got %v", got)
	}
	if got := ChunkWords("   \n\t ", 8, 2); got != nil {
		t.Errorf("whitespace-only text should yield no chunks, got %v", got)
	}
	chunks := ChunkWords("one two", 0, 0) // size < 1 coerced to 1
	if len(chunks) != 2 {
		t.Fatalf("expected 2 single-word chunks, got %v", chunks)
	}
}

func TestChunkWordsShortText(t *testing.T) {
	chunks := ChunkWords("only three words", 180, 30)
	if len(chunks) != 1 || chunks[0] != "only three words" {
		t.Fatalf("short text should be a single chunk, got %v", chunks)
	}
}
