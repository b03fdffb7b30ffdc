package embeddings

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashingEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashingEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"Critérios para alta", "criterios PARA alta"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)

	assert.Len(t, vecs[0], 64)
	assert.Equal(t, vecs[0], vecs[1])

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestHashingEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewHashingEmbedder(0)
	assert.Equal(t, defaultDimensions, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{"  "})
	require.NoError(t, err)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestHashingEmbedder_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashingEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
