package thinker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRoundTripsDecideTool(t *testing.T) {
	s := Step{Kind: StepDecideTool, DecideTool: &DecideTool{ToolID: "mem.free", Why: "check ram"}}
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got Step
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, StepDecideTool, got.Kind)
	require.NotNil(t, got.DecideTool)
	assert.Equal(t, "mem.free", got.DecideTool.ToolID)
}

func TestStepRejectsUnknownKind(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"kind": "do_something_weird"}`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStepRejectsMissingPayload(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"kind": "final_answer"}`), &s)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestStepRejectsNonJSON(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`not json at all`), &s)
	require.Error(t, err)
}
