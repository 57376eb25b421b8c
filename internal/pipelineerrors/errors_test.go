package pipelineerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodePerKind(t *testing.T) {
	assert.Equal(t, ExitConfigError, ExitCode(NewConfigError("/data", errors.New("missing"))))
	assert.Equal(t, ExitPhaseError, ExitCode(NewPhaseError("setup", "preprocessing", "cluster")))
	assert.Equal(t, ExitSchemaError, ExitCode(NewSchemaError("personas.json", "tone_vector.warmth", errors.New("out of range"))))
	assert.Equal(t, ExitCoverageError, ExitCode(NewCoverageError(3, 31, 32, 40)))
	assert.Equal(t, 1, ExitCode(errors.New("unrecognized")))
}

func TestExitCodePerKind_ThroughFmtErrorfWrap(t *testing.T) {
	wrapped := fmt.Errorf("ingest batch: %w", NewCoverageError(3, 31, 32, 40))
	assert.Equal(t, ExitCoverageError, ExitCode(wrapped))

	wrapped = fmt.Errorf("read config: %w", NewConfigError("/data", errors.New("missing")))
	assert.Equal(t, ExitConfigError, ExitCode(wrapped))
}

func TestPhaseErrorMessage(t *testing.T) {
	err := NewPhaseError("setup", "preprocessing", "cluster")
	assert.Contains(t, err.Error(), "cluster")
	assert.Contains(t, err.Error(), "setup")
	assert.Contains(t, err.Error(), "preprocessing")
}

func TestCoverageErrorMessage(t *testing.T) {
	err := NewCoverageError(3, 31, 32, 40)
	assert.Contains(t, err.Error(), "31/32")
}

func TestSchemaErrorUnwraps(t *testing.T) {
	inner := errors.New("out of range")
	err := NewSchemaError("personas.json", "tone_vector.warmth", inner)
	assert.ErrorIs(t, err, inner)
}

func TestQualityWarningIsNonFatalByConvention(t *testing.T) {
	w := NewQualityWarning("cluster count below 3")
	assert.Contains(t, w.Error(), "cluster count below 3")
}

func TestExternalErrorUnwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewExternalError("fetch_linkedin", false, inner)
	assert.ErrorIs(t, err, inner)
	assert.False(t, err.Fatal)
}
