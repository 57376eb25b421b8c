package model

import "time"

// Phase is one node in the pipeline's legal-transition DAG (§3, §5).
type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhasePreprocessing Phase = "preprocessing"
	PhaseAnalysis      Phase = "analysis"
	PhaseValidation    Phase = "validation"
	PhaseLinkedIn      Phase = "linkedin"
	PhaseGeneration    Phase = "generation"
	PhaseComplete      Phase = "complete"
)

// legalTransitions enumerates the DAG edges a WorkflowState may cross.
// analysis <-> validation is the one bidirectional pair (§5): a validation
// run below the coverage target sends the workflow back to analysis for
// another batch round.
var legalTransitions = map[Phase][]Phase{
	PhaseSetup:         {PhasePreprocessing},
	PhasePreprocessing: {PhaseAnalysis},
	PhaseAnalysis:      {PhaseValidation},
	PhaseValidation:    {PhaseAnalysis, PhaseLinkedIn},
	PhaseLinkedIn:      {PhaseGeneration},
	PhaseGeneration:    {PhaseComplete},
	PhaseComplete:      {},
}

// CanTransition reports whether moving from 'from' to 'to' is a legal edge.
func CanTransition(from, to Phase) bool {
	for _, candidate := range legalTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// WorkflowState is the persisted record of pipeline progress (§3, §4.1).
type WorkflowState struct {
	CurrentPhase Phase            `json:"current_phase"`
	History      []PhaseTransition `json:"history"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PhaseTransition is one recorded move through the DAG, kept for audit and
// for resuming an interrupted run at the correct phase (§4.1).
type PhaseTransition struct {
	From      Phase     `json:"from"`
	To        Phase     `json:"to"`
	At        time.Time `json:"at"`
	Reason    string    `json:"reason,omitempty"`
}

// NewWorkflowState returns a fresh state positioned at setup.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{CurrentPhase: PhaseSetup}
}

// Checkpoint is an opaque, phase-scoped resume marker. It lets a long-running
// phase (e.g. embedding a large mailbox) resume from where it left off after
// an interruption, independent of the coarser WorkflowState DAG position
// (§4.1, §7).
type Checkpoint struct {
	Phase     Phase     `json:"phase"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}
