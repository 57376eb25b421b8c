package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func TestInitCreatesSetupState(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Init())

	ws, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseSetup, ws.CurrentPhase)
}

func TestInitFailsIfAlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	err := s.Init()
	assert.Error(t, err)
}

func TestLoadMissingFileReturnsSetup(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	ws, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseSetup, ws.CurrentPhase)
}

func TestTransitionLegalEdge(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	ws, err := s.Transition(model.PhasePreprocessing, "raw samples fetched")
	require.NoError(t, err)
	assert.Equal(t, model.PhasePreprocessing, ws.CurrentPhase)
	require.Len(t, ws.History, 1)
	assert.Equal(t, model.PhaseSetup, ws.History[0].From)
	assert.Equal(t, model.PhasePreprocessing, ws.History[0].To)
}

func TestTransitionIllegalEdgeRejected(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	_, err := s.Transition(model.PhaseComplete, "skip ahead")
	assert.Error(t, err)

	ws, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseSetup, ws.CurrentPhase, "illegal transition must not mutate state")
}

func TestTransitionPersistsAcrossLoads(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())
	_, err := s.Transition(model.PhasePreprocessing, "")
	require.NoError(t, err)

	reopened := New(dir)
	ws, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, model.PhasePreprocessing, ws.CurrentPhase)
}

func TestValidationAnalysisBidirectional(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	_, err := s.Transition(model.PhasePreprocessing, "")
	require.NoError(t, err)
	_, err = s.Transition(model.PhaseAnalysis, "")
	require.NoError(t, err)
	_, err = s.Transition(model.PhaseValidation, "")
	require.NoError(t, err)
	_, err = s.Transition(model.PhaseAnalysis, "coverage below target, another batch round")
	require.NoError(t, err)

	ws, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model.PhaseAnalysis, ws.CurrentPhase)
}

func TestMarkCompleteDoesNotChangePhase(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	ws, err := s.MarkComplete(model.PhaseSetup, "data dir verified")
	require.NoError(t, err)
	assert.Equal(t, model.PhaseSetup, ws.CurrentPhase)
	require.Len(t, ws.History, 1)
	assert.Equal(t, "data dir verified", ws.History[0].Reason)
}

func TestRequirePhaseAtOrBeforeAllowsIdempotentRerun(t *testing.T) {
	assert.NoError(t, RequirePhaseAtOrBefore(model.PhaseSetup, model.PhasePreprocessing))
	assert.NoError(t, RequirePhaseAtOrBefore(model.PhasePreprocessing, model.PhasePreprocessing))
}

func TestRequirePhaseAtOrBeforeRejectsRunningAhead(t *testing.T) {
	err := RequirePhaseAtOrBefore(model.PhaseGeneration, model.PhasePreprocessing)
	assert.Error(t, err)
}
