// Package chunker splits markdown text into pieces that each fit a token
// limit, so an item too large for the budget can be offered in parts.
package chunker

import (
	"strings"
)

// Counter counts tokens in text.
type Counter interface {
	CountTokens(text string) int
}

// Chunk is a piece of the input with its position in the original text.
type Chunk struct {
	Text      string
	StartLine int
	EndLine   int
	Tokens    int
}

// Split breaks text into chunks of at most maxTokens tokens each, preferring
// heading and paragraph boundaries, then lines, then words. A single word
// longer than maxTokens is returned on its own. Text that already fits, or a
// non-positive maxTokens, yields one chunk.
func Split(text string, maxTokens int, counter Counter) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	whole := counter.CountTokens(text)
	if maxTokens <= 0 || whole <= maxTokens {
		return []Chunk{{Text: text, StartLine: 1, EndLine: strings.Count(text, "\n") + 1, Tokens: whole}}
	}

	s := splitter{max: maxTokens, counter: counter}
	return s.merge(splitBlocks(text))
}

// block is an intermediate representation of a text section.
type block struct {
	text      string
	startLine int
	endLine   int
}

// splitBlocks splits text on heading lines and blank lines.
func splitBlocks(text string) []block {
	lines := strings.Split(text, "\n")
	var blocks []block
	var current []string
	startLine := 1

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			blocks = append(blocks, block{text: t, startLine: startLine, endLine: endLine})
		}
		current = nil
		startLine = endLine + 1
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush(lineNum - 1)
		}
		if trimmed == "" {
			flush(lineNum - 1)
			continue
		}
		if len(current) == 0 {
			startLine = lineNum
		}
		current = append(current, line)
	}
	flush(len(lines))

	return blocks
}

type splitter struct {
	max     int
	counter Counter
	out     []Chunk
}

func (s *splitter) emit(text string, start, end int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.out = append(s.out, Chunk{Text: text, StartLine: start, EndLine: end, Tokens: s.counter.CountTokens(text)})
}

// merge packs consecutive blocks while they fit and splits oversized ones.
func (s *splitter) merge(blocks []block) []Chunk {
	var accum block
	for _, b := range blocks {
		if s.counter.CountTokens(b.text) > s.max {
			if accum.text != "" {
				s.emit(accum.text, accum.startLine, accum.endLine)
				accum = block{}
			}
			s.splitLines(b)
			continue
		}
		if accum.text == "" {
			accum = b
			continue
		}
		combined := accum.text + "\n\n" + b.text
		if s.counter.CountTokens(combined) <= s.max {
			accum.text = combined
			accum.endLine = b.endLine
			continue
		}
		s.emit(accum.text, accum.startLine, accum.endLine)
		accum = b
	}
	if accum.text != "" {
		s.emit(accum.text, accum.startLine, accum.endLine)
	}
	return s.out
}

// splitLines breaks an oversized block on line boundaries.
func (s *splitter) splitLines(b block) {
	lines := strings.Split(b.text, "\n")
	var current []string
	curStart := b.startLine

	for i, line := range lines {
		lineNum := b.startLine + i
		if s.counter.CountTokens(line) > s.max {
			if len(current) > 0 {
				s.emit(strings.Join(current, "\n"), curStart, lineNum-1)
				current = nil
			}
			s.splitWords(line, lineNum)
			curStart = lineNum + 1
			continue
		}
		candidate := append(current, line)
		if len(current) > 0 && s.counter.CountTokens(strings.Join(candidate, "\n")) > s.max {
			s.emit(strings.Join(current, "\n"), curStart, lineNum-1)
			current = []string{line}
			curStart = lineNum
			continue
		}
		if len(current) == 0 {
			curStart = lineNum
		}
		current = candidate
	}
	if len(current) > 0 {
		s.emit(strings.Join(current, "\n"), curStart, b.startLine+len(lines)-1)
	}
}

// splitWords breaks a single oversized line on whitespace.
func (s *splitter) splitWords(line string, lineNum int) {
	var current []string
	for _, w := range strings.Fields(line) {
		candidate := append(current, w)
		if len(current) > 0 && s.counter.CountTokens(strings.Join(candidate, " ")) > s.max {
			s.emit(strings.Join(current, " "), lineNum, lineNum)
			current = []string{w}
			continue
		}
		current = candidate
	}
	if len(current) > 0 {
		s.emit(strings.Join(current, " "), lineNum, lineNum)
	}
}
