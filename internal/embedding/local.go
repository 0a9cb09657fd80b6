package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/rcliao/agent-context/internal/similarity"
)

const localModelID = "local/chargram-384"

var wordPattern = regexp.MustCompile(`[A-Za-z0-9_\-]+`)

// LocalEmbedder hashes character trigrams and words into a fixed-size,
// L2-normalized vector. It needs no network and gives near-duplicate text
// near-identical vectors, which is what redundancy resolution needs.
type LocalEmbedder struct {
	dims int
}

// NewLocalEmbedder returns a 384-dimension local embedder.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{dims: 384}
}

func (e *LocalEmbedder) Embed(_ context.Context, text string) (similarity.Vector, error) {
	vec := make([]float32, e.dims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec, nil
	}
	window := "#" + normalized + "#"
	for i := 0; i+3 <= len(window); i++ {
		vec[e.bucket(window[i:i+3])] += 1
	}
	for _, word := range wordPattern.FindAllString(normalized, -1) {
		vec[e.bucket("tok:"+word)] += 1.25
	}
	normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) bucket(s string) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(e.dims))
}

func (e *LocalEmbedder) Dims() int { return e.dims }

func (e *LocalEmbedder) ModelID() string { return localModelID }

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
