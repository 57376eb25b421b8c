// Package pipelineerrors defines the typed error kinds the pipeline core
// distinguishes, each carrying the exit code and structural detail callers
// need to produce an actionable message (§7).
package pipelineerrors

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Exit codes, one per error kind (§7).
const (
	ExitConfigError   = 2
	ExitPhaseError    = 3
	ExitSchemaError   = 4
	ExitCoverageError = 5
)

// ConfigError reports a missing data directory or unreadable artefact.
// Fatal; do not attempt recovery.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err with the artefact or directory path that
// triggered it.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Err: eris.Wrap(err, "config")}
}

// PhaseError reports a stage invoked out of order.
type PhaseError struct {
	Current     string
	Required    string
	Requested   string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase error: cannot run %q from phase %q, requires %q", e.Requested, e.Current, e.Required)
}

// NewPhaseError builds a PhaseError describing the illegal transition.
func NewPhaseError(current, required, requested string) *PhaseError {
	return &PhaseError{Current: current, Required: required, Requested: requested}
}

// SchemaError reports a JSON artefact failing validation.
type SchemaError struct {
	Artefact  string
	FieldPath string
	Err       error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: field %q: %v", e.Artefact, e.FieldPath, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// NewSchemaError builds a SchemaError pointing at the first violating field.
func NewSchemaError(artefact, fieldPath string, err error) *SchemaError {
	return &SchemaError{Artefact: artefact, FieldPath: fieldPath, Err: eris.Wrap(err, "schema")}
}

// CoverageError reports that an ingestion would violate the coverage
// invariant (§4.7).
type CoverageError struct {
	ClusterID int
	Ingested  int
	Required  int
	Total     int
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("coverage error: cluster %d: %d/%d required (of %d members)",
		e.ClusterID, e.Ingested, e.Required, e.Total)
}

// NewCoverageError builds a CoverageError reporting current-vs-required counts.
func NewCoverageError(clusterID, ingested, required, total int) *CoverageError {
	return &CoverageError{ClusterID: clusterID, Ingested: ingested, Required: required, Total: total}
}

// QualityWarning is advisory and never fatal: low cluster count, low
// LinkedIn post count, low validation score. Logged and surfaced in the
// next stage's banner, never returned as a hard error from a stage's
// top-level Run.
type QualityWarning struct {
	Message string
}

func (w *QualityWarning) Error() string { return "quality warning: " + w.Message }

// NewQualityWarning builds a QualityWarning with the given advisory message.
func NewQualityWarning(message string) *QualityWarning {
	return &QualityWarning{Message: message}
}

// ExternalError wraps a transient failure from an HTTP call or subprocess.
// Retried per the resilience package; surfaced as non-fatal for per-item
// failures, fatal for whole-pipeline dependencies.
type ExternalError struct {
	Operation string
	Fatal     bool
	Err       error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external error: %s: %v", e.Operation, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// NewExternalError wraps err as an ExternalError for the named operation.
func NewExternalError(operation string, fatal bool, err error) *ExternalError {
	return &ExternalError{Operation: operation, Fatal: fatal, Err: eris.Wrap(err, "external")}
}

// ExitCode returns the process exit code for a recognised pipeline error,
// or 1 for anything else. Uses errors.As rather than a type switch since
// callers typically return these wrapped (e.g. fmt.Errorf("...: %w", err)),
// so the top-level value is rarely the typed error itself (§7).
func ExitCode(err error) int {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}
	var phaseErr *PhaseError
	if errors.As(err, &phaseErr) {
		return ExitPhaseError
	}
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return ExitSchemaError
	}
	var coverageErr *CoverageError
	if errors.As(err, &coverageErr) {
		return ExitCoverageError
	}
	return 1
}
