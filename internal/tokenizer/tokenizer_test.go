package tokenizer

import (
	"errors"
	"testing"
)

func TestCountTokens(t *testing.T) {
	tests := []struct {
		family string
		text   string
		want   int
	}{
		{"gpt-4", "hello world", 2},
		{"claude", "", 0},
		{"", "hello world", 2},
	}
	for _, tt := range tests {
		got, err := CountTokens(tt.text, tt.family)
		if err != nil {
			t.Fatalf("CountTokens(%q, %q): %v", tt.text, tt.family, err)
		}
		if got != tt.want {
			t.Errorf("CountTokens(%q, %q) = %d, want %d", tt.text, tt.family, got, tt.want)
		}
	}
}

func TestForFamilyCached(t *testing.T) {
	a, err := ForFamily("GPT-4")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ForFamily("gpt-4")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected the same cached encoder")
	}
	if a.Family() != "gpt-4" {
		t.Errorf("family = %q", a.Family())
	}
}

func TestForFamilyUnknown(t *testing.T) {
	_, err := ForFamily("not-a-model")
	if !errors.Is(err, ErrUnknownModelFamily) {
		t.Fatalf("expected ErrUnknownModelFamily, got %v", err)
	}
}

func TestCountTokensSpecialMarker(t *testing.T) {
	e, err := ForFamily("gpt-4")
	if err != nil {
		t.Fatal(err)
	}
	// Must not panic on special-token text.
	if n := e.CountTokens("<|endoftext|>"); n != 1 {
		t.Errorf("special marker counted as %d tokens, want 1", n)
	}
}

func TestCountTokensStable(t *testing.T) {
	e, err := ForFamily("cl100k")
	if err != nil {
		t.Fatal(err)
	}
	text := "The quick brown fox jumps over the lazy dog."
	first := e.CountTokens(text)
	if first == 0 {
		t.Fatal("expected non-zero count")
	}
	for i := 0; i < 3; i++ {
		if got := e.CountTokens(text); got != first {
			t.Fatalf("count changed: %d then %d", first, got)
		}
	}
}
