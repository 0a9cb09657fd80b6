// Package tokenizer counts tokens exactly for a named model family.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// ErrUnknownModelFamily is returned when no encoding is known for a family.
var ErrUnknownModelFamily = errors.New("unknown model family")

// DefaultFamily is used when no model family is configured.
const DefaultFamily = "gpt-4"

func init() {
	// BPE ranks are embedded; counting never downloads anything.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// families maps model family names to tiktoken encodings.
var families = map[string]string{
	"gpt-4o":        "o200k_base",
	"o200k":         "o200k_base",
	"o1":            "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
	"claude":        "cl100k_base",
	"cl100k":        "cl100k_base",
	"codex":         "p50k_base",
	"p50k":          "p50k_base",
	"gpt-2":         "r50k_base",
	"r50k":          "r50k_base",
}

// Encoder counts tokens for one model family.
type Encoder struct {
	family string
	enc    *tiktoken.Tiktoken
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Encoder{}
)

// ForFamily returns the encoder for a model family. Names that are not a
// known family are tried as tiktoken model names.
func ForFamily(family string) (*Encoder, error) {
	family = strings.ToLower(strings.TrimSpace(family))
	if family == "" {
		family = DefaultFamily
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if e, ok := cache[family]; ok {
		return e, nil
	}

	var (
		enc *tiktoken.Tiktoken
		err error
	)
	if name, ok := families[family]; ok {
		enc, err = tiktoken.GetEncoding(name)
	} else {
		enc, err = tiktoken.EncodingForModel(family)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModelFamily, family)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("tokenizer: get encoding for %q: %w", family, err)
	}

	e := &Encoder{family: family, enc: enc}
	cache[family] = e
	return e, nil
}

// Family returns the normalized family name.
func (e *Encoder) Family() string { return e.family }

// CountTokens returns the exact number of tokens in text. Special-token
// markers in the text are counted as the encoder would emit them.
func (e *Encoder) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(e.enc.Encode(text, []string{"all"}, nil))
}

// CountTokens counts text for the given model family.
func CountTokens(text, family string) (int, error) {
	e, err := ForFamily(family)
	if err != nil {
		return 0, err
	}
	return e.CountTokens(text), nil
}
