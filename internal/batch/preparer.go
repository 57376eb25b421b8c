// Package batch implements the caller-LLM batch round-trip: BatchPreparer
// renders one cluster's content to an io.Writer (§4.6), BatchIngester
// merges a submitted batch back into the PersonaRegistry (§4.7).
package batch

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/refdata"
)

// Preparer writes the calibration anchors, schema, and a cluster's member
// messages to an io.Writer, for a human operator to paste into a caller-LLM
// session (§4.6).
type Preparer struct {
	coverageTarget float64
}

// NewPreparer returns a Preparer enforcing the given coverage target
// (fraction in (0,1], e.g. 0.8).
func NewPreparer(coverageTarget float64) *Preparer {
	if coverageTarget <= 0 {
		coverageTarget = 0.8
	}
	return &Preparer{coverageTarget: coverageTarget}
}

// RequiredCount returns how many of a cluster's members must be analysed,
// cumulative across batches, to satisfy the coverage target (§4.6).
func (p *Preparer) RequiredCount(clusterSize int) int {
	required := int(float64(clusterSize)*p.coverageTarget + 0.999999)
	if required > clusterSize {
		required = clusterSize
	}
	if required < 1 && clusterSize > 0 {
		required = 1
	}
	return required
}

// Write renders the full batch prompt for one cluster: calibration anchors,
// then the schema contract, then member emails up to the coverage
// requirement, skipping any member ID already ingested (§4.6 items 1-3).
func (p *Preparer) Write(w io.Writer, cluster model.Cluster, members []model.EnrichedMessage, alreadyIngested map[string]bool) error {
	calibration, err := refdata.RenderCalibration()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, calibration); err != nil {
		return err
	}

	schema, err := refdata.BatchSchema()
	if err != nil {
		return err
	}
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n# Batch schema contract\n\n%s\n\n", schemaJSON); err != nil {
		return err
	}

	required := p.RequiredCount(cluster.Size)
	remaining := required - len(alreadyIngested)
	if remaining < 0 {
		remaining = 0
	}

	if _, err := fmt.Fprintf(w, "# Cluster %d members (%d of %d required, %d remaining)\n\n",
		cluster.ClusterID, len(alreadyIngested), required, remaining); err != nil {
		return err
	}

	written := 0
	for _, msg := range members {
		if written >= remaining {
			break
		}
		if alreadyIngested[msg.ID()] {
			continue
		}
		if _, err := fmt.Fprintf(w, "## %s\ncontext: %+v\n\n%s\n\n", msg.ID(), msg.Context, msg.Body()); err != nil {
			return err
		}
		written++
	}

	return nil
}
