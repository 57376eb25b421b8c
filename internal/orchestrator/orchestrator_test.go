package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

func TestCheckStage_RejectsWhenArtefactMissing(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)

	err := r.CheckStage("cluster")
	require.Error(t, err)
	var cfgErr *pipelineerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestCheckStage_PassesWhenArtefactPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, EmbeddingsDir), 0o755))
	r := New(dir)

	assert.NoError(t, r.CheckStage("cluster"))
}

func TestCheckStage_UnknownStageIsUnchecked(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	assert.NoError(t, r.CheckStage("status"))
}

func TestStatus_ReportsCurrentPhaseAndArtefacts(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	require.NoError(t, r.Store().Init())

	out, err := r.Status()
	require.NoError(t, err)
	assert.Contains(t, out, "phase: "+string(model.PhaseSetup))
	assert.Contains(t, out, "missing")
}
