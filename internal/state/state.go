// Package state implements the pipeline's single persistent workflow record
// (§4.1): a JSON file at a well-known path inside the data directory,
// guarded by the phase DAG in internal/model.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

// FileName is the well-known state file name inside the data directory.
const FileName = "state.json"

// Store manages the single WorkflowState record for one data directory.
type Store struct {
	dataDir string
}

// New returns a Store rooted at dataDir. dataDir must already exist.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) path() string {
	return filepath.Join(s.dataDir, FileName)
}

// Init creates the state record if absent; fails if present (§4.1).
func (s *Store) Init() error {
	if _, err := os.Stat(s.path()); err == nil {
		return eris.New("state: already initialized")
	} else if !os.IsNotExist(err) {
		return pipelineerrors.NewConfigError(s.path(), err)
	}

	ws := model.NewWorkflowState()
	ws.UpdatedAt = time.Now().UTC()
	return s.writeAtomic(ws)
}

// Load returns the current record; a missing file is reported as a fresh
// state at the setup phase (§4.1).
func (s *Store) Load() (*model.WorkflowState, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return model.NewWorkflowState(), nil
	}
	if err != nil {
		return nil, pipelineerrors.NewConfigError(s.path(), err)
	}

	var ws model.WorkflowState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, pipelineerrors.NewSchemaError(s.path(), "$", err)
	}
	return &ws, nil
}

// GetPhase returns the current phase.
func (s *Store) GetPhase() (model.Phase, error) {
	ws, err := s.Load()
	if err != nil {
		return "", err
	}
	return ws.CurrentPhase, nil
}

// Transition atomically moves the workflow to toPhase, rejecting illegal
// edges in the DAG (§4.1).
func (s *Store) Transition(toPhase model.Phase, reason string) (*model.WorkflowState, error) {
	ws, err := s.Load()
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(ws.CurrentPhase, toPhase) {
		return nil, pipelineerrors.NewPhaseError(string(ws.CurrentPhase), string(toPhase), string(toPhase))
	}

	now := time.Now().UTC()
	ws.History = append(ws.History, model.PhaseTransition{
		From: ws.CurrentPhase, To: toPhase, At: now, Reason: reason,
	})
	ws.CurrentPhase = toPhase
	ws.UpdatedAt = now

	if err := s.writeAtomic(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// MarkComplete records metadata about a phase's completion without
// transitioning away from it. The metadata is appended as a history entry
// with From == To, giving the orchestrator an audit trail of reruns.
func (s *Store) MarkComplete(phase model.Phase, metadata string) (*model.WorkflowState, error) {
	ws, err := s.Load()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ws.History = append(ws.History, model.PhaseTransition{
		From: phase, To: phase, At: now, Reason: metadata,
	})
	ws.UpdatedAt = now

	if err := s.writeAtomic(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// RequirePhaseAtOrBefore enforces §4.1's idempotent re-run rule: a stage may
// run if the current phase equals requiredPhase or is strictly earlier in
// the DAG's canonical order.
func RequirePhaseAtOrBefore(current, required model.Phase) error {
	order := []model.Phase{
		model.PhaseSetup, model.PhasePreprocessing, model.PhaseAnalysis,
		model.PhaseValidation, model.PhaseLinkedIn, model.PhaseGeneration, model.PhaseComplete,
	}
	idx := func(p model.Phase) int {
		for i, ph := range order {
			if ph == p {
				return i
			}
		}
		return -1
	}
	ci, ri := idx(current), idx(required)
	if ci == -1 || ri == -1 || ci > ri {
		return pipelineerrors.NewPhaseError(string(current), string(required), string(required))
	}
	return nil
}

// writeAtomic persists ws using the write-temp-then-rename pattern (§5, §6).
func (s *Store) writeAtomic(ws *model.WorkflowState) error {
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return eris.Wrap(err, "state: marshal")
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return pipelineerrors.NewConfigError(tmp, err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return pipelineerrors.NewConfigError(s.path(), err)
	}
	return nil
}
