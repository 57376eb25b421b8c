// Package orchestrator is a thin router over internal/state plus artefact
// existence checks against the data directory. It never performs pipeline
// work itself; each stage remains an independent command. This mirrors the
// teacher's cmd/root.go dispatch-by-flag idiom, generalized to
// dispatch-by-phase (§4.10).
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
	"github.com/jrenaldi79/writing-style-pipeline/internal/state"
)

// Well-known artefact paths, relative to the data directory (§6).
const (
	RawSamplesDir      = "raw_samples"
	FilteredSamplesDir = "filtered_samples"
	EnrichedSamplesDir = "enriched_samples"
	EmbeddingsDir      = "embeddings"
	ClustersFile       = "clusters.json"
	BatchesDir         = "batches"
	PersonaRegistryFile = "persona_registry.json"
	LinkedInPersonaFile = "linkedin_persona.json"
	ValidationSetDir      = "validation_set"
	ValidationPairsFile   = "validation_pairs.json"
	ValidationResultsFile = "validation_results.json"
	ValidationReportFile  = "validation_report.json"
	ValidationFeedbackFile = "validation_feedback.json"
)

// requirement names an artefact and the phase whose completion produces it.
type requirement struct {
	path  string
	phase model.Phase
}

// stageRequirements lists, per command, the artefacts that must already
// exist in the data directory before the command may run (§4.10).
var stageRequirements = map[string][]requirement{
	"preprocess": {{RawSamplesDir, model.PhaseSetup}},
	"cluster":    {{EmbeddingsDir, model.PhasePreprocessing}},
	"batch":      {{ClustersFile, model.PhaseAnalysis}},
	"linkedin":   {{RawSamplesDir, model.PhaseValidation}},
	"validate":   {{PersonaRegistryFile, model.PhaseAnalysis}, {ValidationSetDir, model.PhaseSetup}},
	"generate":   {{LinkedInPersonaFile, model.PhaseLinkedIn}},
}

// StageNames returns every stage name CheckStage recognizes, sorted, for
// the Orchestrator's `--check` readiness report (§12 SUPPLEMENT).
func StageNames() []string {
	names := make([]string, 0, len(stageRequirements))
	for name := range stageRequirements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Router dispatches stage commands against a single data directory's
// workflow state.
type Router struct {
	dataDir string
	store   *state.Store
}

// New returns a Router rooted at dataDir.
func New(dataDir string) *Router {
	return &Router{dataDir: dataDir, store: state.New(dataDir)}
}

// Store exposes the underlying state.Store for commands that need direct
// phase transitions.
func (r *Router) Store() *state.Store { return r.store }

// CheckStage verifies the named stage's required artefacts are present
// before it runs, returning a ConfigError naming the first missing one.
// Unknown stage names are permitted through unchecked (e.g. "init",
// "status").
func (r *Router) CheckStage(stage string) error {
	reqs, ok := stageRequirements[stage]
	if !ok {
		return nil
	}
	for _, req := range reqs {
		full := filepath.Join(r.dataDir, req.path)
		if _, err := os.Stat(full); err != nil {
			return pipelineerrors.NewConfigError(full,
				fmt.Errorf("required artefact from phase %q is missing; run the earlier stage first", req.phase))
		}
	}
	return nil
}

// Status renders a one-line-per-fact banner describing the workflow's
// current phase and which artefacts exist, used by `--status` and printed
// after every stage completes (§4.10, §6).
func (r *Router) Status() (string, error) {
	ws, err := r.store.Load()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "phase: %s\n", ws.CurrentPhase)
	for _, name := range []string{RawSamplesDir, FilteredSamplesDir, EnrichedSamplesDir, EmbeddingsDir,
		ClustersFile, PersonaRegistryFile, LinkedInPersonaFile, ValidationResultsFile} {
		present := "missing"
		if _, err := os.Stat(filepath.Join(r.dataDir, name)); err == nil {
			present = "present"
		}
		fmt.Fprintf(&b, "  %-20s %s\n", name, present)
	}
	if ws.CurrentPhase == model.PhaseComplete {
		b.WriteString("pipeline complete. Stop here, or start a new session with `init` to build another persona set.\n")
	}
	return b.String(), nil
}
