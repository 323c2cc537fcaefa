package dataquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunExecutesExpression(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	r := p.Run(sampleFrame(), "df.head(1)")
	require.True(t, r.Success)
	assert.Equal(t, 1, r.Rows)
}

func TestPoolRunConcurrentJobs(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	results := make(chan Result, 10)
	for i := 0; i < 10; i++ {
		go func() {
			results <- p.Run(sampleFrame(), "df.shape")
		}()
	}
	for i := 0; i < 10; i++ {
		r := <-results
		assert.True(t, r.Success)
	}
}
