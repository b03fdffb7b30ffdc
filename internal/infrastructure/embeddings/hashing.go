package embeddings

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/zatekoja/stayaudit/pkg/utils"
)

const defaultDimensions = 512

// HashingEmbedder maps accent-folded tokens onto a fixed number of buckets.
// It needs no model or network and is deterministic across runs.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates an embedder producing vectors of size dims
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = defaultDimensions
	}
	return &HashingEmbedder{dims: dims}
}

// Dimensions returns the vector size
func (e *HashingEmbedder) Dimensions() int {
	return e.dims
}

// Embed returns one L2-normalized vector per text
func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float64, e.dims)
	for _, token := range utils.Tokenize(text) {
		if len(token) < 3 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum32()
		sign := 1.0
		if sum&1 == 1 {
			sign = -1.0
		}
		vec[int(sum>>1)%e.dims] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	result := make([]float32, e.dims)
	if norm == 0 {
		return result
	}
	for i, v := range vec {
		result[i] = float32(v / norm)
	}
	return result
}
