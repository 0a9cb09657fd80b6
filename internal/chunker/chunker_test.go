package chunker

import (
	"strings"
	"testing"
)

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestSplit_EmptyInput(t *testing.T) {
	if result := Split("  \n ", 10, wordCounter{}); result != nil {
		t.Errorf("expected nil, got %v", result)
	}
}

func TestSplit_FitsInOneChunk(t *testing.T) {
	text := "This is a short memory."
	result := Split(text, 10, wordCounter{})
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(result))
	}
	if result[0].Text != text {
		t.Errorf("expected %q, got %q", text, result[0].Text)
	}
	if result[0].Tokens != 5 {
		t.Errorf("expected 5 tokens, got %d", result[0].Tokens)
	}
	if result[0].StartLine != 1 || result[0].EndLine != 1 {
		t.Errorf("lines = %d-%d, want 1-1", result[0].StartLine, result[0].EndLine)
	}
}

func TestSplit_NoLimit(t *testing.T) {
	result := Split("a b c d e f", 0, wordCounter{})
	if len(result) != 1 {
		t.Fatalf("expected 1 chunk for non-positive limit, got %d", len(result))
	}
}

func TestSplit_MergesParagraphs(t *testing.T) {
	text := "a b c\n\nd e f\n\ng h i"
	result := Split(text, 6, wordCounter{})
	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(result), result)
	}
	if result[0].Text != "a b c\n\nd e f" {
		t.Errorf("first chunk = %q", result[0].Text)
	}
	if result[0].StartLine != 1 || result[0].EndLine != 3 {
		t.Errorf("first chunk lines = %d-%d, want 1-3", result[0].StartLine, result[0].EndLine)
	}
	if result[1].Text != "g h i" || result[1].StartLine != 5 {
		t.Errorf("second chunk = %+v", result[1])
	}
}

func TestSplit_SplitsOnHeadings(t *testing.T) {
	text := "# A\nx y\n# B\nz w"
	result := Split(text, 4, wordCounter{})
	if len(result) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(result), result)
	}
	if !strings.HasPrefix(result[0].Text, "# A") || !strings.HasPrefix(result[1].Text, "# B") {
		t.Errorf("chunks should start at headings: %q, %q", result[0].Text, result[1].Text)
	}
	if result[1].StartLine != 3 {
		t.Errorf("second chunk should start on line 3, got %d", result[1].StartLine)
	}
}

func TestSplit_LongLineSplitsOnWords(t *testing.T) {
	result := Split("one two three four five", 2, wordCounter{})
	want := []string{"one two", "three four", "five"}
	if len(result) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %+v", len(want), len(result), result)
	}
	for i, w := range want {
		if result[i].Text != w {
			t.Errorf("chunk %d = %q, want %q", i, result[i].Text, w)
		}
	}
}

func TestSplit_EveryChunkFits(t *testing.T) {
	var b strings.Builder
	b.WriteString("# Notes\n\n")
	for i := 0; i < 30; i++ {
		b.WriteString("the deploy pipeline ran the integration suite again\n")
		if i%7 == 0 {
			b.WriteString("\n")
		}
	}
	text := b.String()

	const limit = 25
	result := Split(text, limit, wordCounter{})
	if len(result) < 2 {
		t.Fatalf("expected several chunks, got %d", len(result))
	}

	counter := wordCounter{}
	var words []string
	for _, c := range result {
		if c.Tokens > limit {
			t.Errorf("chunk over limit: %d tokens", c.Tokens)
		}
		if c.Tokens != counter.CountTokens(c.Text) {
			t.Errorf("Tokens field out of sync with text")
		}
		words = append(words, strings.Fields(c.Text)...)
	}
	if strings.Join(words, " ") != strings.Join(strings.Fields(text), " ") {
		t.Error("chunks should preserve every word in order")
	}
}
