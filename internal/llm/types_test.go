package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 3, EstimateTokens("twelve chars"))
}

func TestIsEmptyArgs(t *testing.T) {
	assert.True(t, isEmptyArgs(""))
	assert.True(t, isEmptyArgs("{}"))
	assert.True(t, isEmptyArgs("null"))
	assert.False(t, isEmptyArgs(`{"x":1}`))
}

func TestIsEmptyArgsBytes(t *testing.T) {
	assert.True(t, isEmptyArgsBytes(nil))
	assert.True(t, isEmptyArgsBytes([]byte("{}")))
	assert.False(t, isEmptyArgsBytes([]byte(`{"a":"b"}`)))
}

func TestEstimatePromptTokens(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "hi"},
	}
	assert.Equal(t, EstimateTokens("you are helpful")+EstimateTokens("hi"), estimatePromptTokens(msgs))
}
