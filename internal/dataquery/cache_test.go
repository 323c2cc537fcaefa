package dataquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCachePutGetEvict(t *testing.T) {
	c := NewCache()
	f := sampleFrame()
	c.Put("agent-1", "data.csv", f)

	got, ok := c.Get("agent-1", "data.csv")
	assert.True(t, ok)
	assert.Same(t, f, got)

	_, ok = c.Get("agent-1", "missing.csv")
	assert.False(t, ok)

	_, ok = c.Get("agent-2", "data.csv")
	assert.False(t, ok)

	assert.Equal(t, []string{"data.csv"}, c.Files("agent-1"))

	c.Evict("agent-1", "data.csv")
	_, ok = c.Get("agent-1", "data.csv")
	assert.False(t, ok)
}
