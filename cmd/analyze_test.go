package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONObject_StripsSurroundingProse(t *testing.T) {
	text := "Sure, here is the analysis:\n```json\n{\"batch_id\": \"b1\"}\n```\nLet me know if you need anything else."
	got := jsonObject(text)
	assert.Equal(t, `{"batch_id": "b1"}`, string(got))
}

func TestJSONObject_PassesThroughBareObject(t *testing.T) {
	got := jsonObject(`{"a": 1}`)
	assert.Equal(t, `{"a": 1}`, string(got))
}

func TestDecodeBatchResponse_MapsIntoSubmittedBatch(t *testing.T) {
	text := `{
		"batch_id": "b1",
		"cluster_id": 3,
		"calibration_referenced": true,
		"new_personas": [{"name": "direct-executive", "tone_vector": {"formality": 7, "warmth": 4, "authority": 8, "directness": 9}}],
		"samples": [{"message_id": "m1", "persona_name": "direct-executive", "confidence": 0.9, "tone_vector": {"formality": 7, "warmth": 4, "authority": 8, "directness": 9}}]
	}`

	submitted, err := decodeBatchResponse(text)
	require.NoError(t, err)
	assert.Equal(t, "b1", submitted.BatchID)
	assert.True(t, submitted.CalibrationReferenced)
	require.Len(t, submitted.NewPersonas, 1)
	assert.Equal(t, "direct-executive", submitted.NewPersonas[0].Name)
	assert.Equal(t, 8, submitted.NewPersonas[0].ToneVector.Authority)
	require.Len(t, submitted.Samples, 1)
	assert.Equal(t, "m1", submitted.Samples[0].MessageID)
	assert.Equal(t, 0.9, submitted.Samples[0].Confidence)
}

func TestDecodeBatchResponse_RejectsMalformedJSON(t *testing.T) {
	_, err := decodeBatchResponse("not json at all")
	assert.Error(t, err)
}
