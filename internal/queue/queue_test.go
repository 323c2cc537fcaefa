package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRoundTripsThroughJSON(t *testing.T) {
	job := Job{
		JobID:   "job-1",
		AgentID: "agent-1",
		Message: Message{
			UserID:  "user-1",
			Channel: "web",
			Text:    "hello",
		},
		History: []HistoryTurn{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "hello there"},
		},
		Stream:     true,
		EnqueuedAt: time.Unix(0, 0).UTC(),
	}

	data, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded Job
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, job, decoded)
}

func TestJobOmitsEmptyWebhookURL(t *testing.T) {
	data, err := json.Marshal(Job{JobID: "j", AgentID: "a"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "webhook_output_url")
}
