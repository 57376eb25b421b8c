package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

// writeJSONAtomic marshals v and writes it to path using the
// write-temp-then-rename pattern used throughout the data directory (§6).
func writeJSONAtomic(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artefacts: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pipelineerrors.NewConfigError(filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return pipelineerrors.NewConfigError(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pipelineerrors.NewConfigError(path, err)
	}
	return nil
}

// writeTextAtomic writes raw text to path using the same write-temp-then-
// rename pattern as writeJSONAtomic, for the one artefact (persona_prompt.md)
// that isn't JSON.
func writeTextAtomic(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return pipelineerrors.NewConfigError(filepath.Dir(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		return pipelineerrors.NewConfigError(tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return pipelineerrors.NewConfigError(path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return pipelineerrors.NewConfigError(path, err)
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return pipelineerrors.NewSchemaError(path, "$", err)
	}
	return nil
}

// rawMessagePath returns the canonical path for one raw message under
// raw_samples/ (§6: email_<id>.json, linkedin_post_<n>.json).
func rawMessagePath(dataDir string, msg model.RawMessage) string {
	return rawMessagePathIn(dataDir, "raw_samples", msg)
}

// validationSetMessagePath returns the canonical path for one held-out raw
// message under validation_set/, same naming scheme as raw_samples/ (§6,
// E6: messages fetched with --holdout never enter raw_samples/).
func validationSetMessagePath(dataDir string, msg model.RawMessage) string {
	return rawMessagePathIn(dataDir, "validation_set", msg)
}

func rawMessagePathIn(dataDir, subdir string, msg model.RawMessage) string {
	switch msg.Platform {
	case model.PlatformEmail:
		return filepath.Join(dataDir, subdir, "email_"+msg.ID()+".json")
	case model.PlatformLinkedIn:
		return filepath.Join(dataDir, subdir, "linkedin_post_"+msg.ID()+".json")
	default:
		return filepath.Join(dataDir, subdir, msg.ID()+".json")
	}
}

// loadRawMessages reads every JSON file directly under dir, in filename
// order, for deterministic downstream processing.
func loadRawMessages(dir string) ([]model.RawMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerrors.NewConfigError(dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]model.RawMessage, 0, len(names))
	for _, name := range names {
		var msg model.RawMessage
		if err := readJSON(filepath.Join(dir, name), &msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func loadFilteredMessages(dir string) ([]model.FilteredMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerrors.NewConfigError(dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]model.FilteredMessage, 0, len(names))
	for _, name := range names {
		var fm model.FilteredMessage
		if err := readJSON(filepath.Join(dir, name), &fm); err != nil {
			return nil, err
		}
		out = append(out, fm)
	}
	return out, nil
}

func loadEnrichedMessages(dir string) ([]model.EnrichedMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pipelineerrors.NewConfigError(dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]model.EnrichedMessage, 0, len(names))
	for _, name := range names {
		var em model.EnrichedMessage
		if err := readJSON(filepath.Join(dir, name), &em); err != nil {
			return nil, err
		}
		out = append(out, em)
	}
	return out, nil
}
