package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCalibration_IncludesAllDimensions(t *testing.T) {
	out, err := RenderCalibration()
	require.NoError(t, err)
	for _, dim := range CalibrationAnchors {
		assert.Contains(t, out, dim.Name)
	}
}

func TestBatchSchema_RequiresCoreFields(t *testing.T) {
	schema, err := BatchSchema()
	require.NoError(t, err)

	required, ok := schema["required"].([]any)
	require.True(t, ok, "schema must list required fields")

	names := make(map[string]bool, len(required))
	for _, r := range required {
		names[r.(string)] = true
	}
	for _, field := range []string{"batch_id", "cluster_id", "calibration_referenced", "samples"} {
		assert.True(t, names[field], "expected %q to be required", field)
	}
}

func TestBatchSchema_HasNoSchemaMetaKeys(t *testing.T) {
	schema, err := BatchSchema()
	require.NoError(t, err)
	_, hasSchemaKey := schema["$schema"]
	_, hasIDKey := schema["$id"]
	assert.False(t, hasSchemaKey)
	assert.False(t, hasIDKey)
}
