package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineIdenticalVectors(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, cosine(v, v), 1e-9)
}

func TestCosineOrthogonalVectors(t *testing.T) {
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
}

func TestCosineOppositeVectors(t *testing.T) {
	assert.InDelta(t, -1.0, cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineMismatchedDimensionsReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestCosineZeroMagnitudeReturnsZero(t *testing.T) {
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 2}))
}
