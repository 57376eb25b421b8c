package batch

import (
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

const maxExamplesPerPersona = 4

// Ingester merges a submitted BatchFile into a PersonaRegistry, enforcing
// the coverage invariant (§4.7).
type Ingester struct {
	coverageTarget float64
}

// NewIngester returns an Ingester enforcing the given coverage target.
func NewIngester(coverageTarget float64) *Ingester {
	if coverageTarget <= 0 {
		coverageTarget = 0.8
	}
	return &Ingester{coverageTarget: coverageTarget}
}

// SubmittedBatch is the decoded caller-LLM submission, independent of its
// wire representation (refdata.BatchFile is the schema/wire contract;
// SubmittedBatch is what the ingester actually operates on).
type SubmittedBatch struct {
	BatchID               string       `json:"batch_id"`
	ClusterID             int          `json:"cluster_id"`
	CalibrationReferenced bool         `json:"calibration_referenced"`
	NewPersonas           []NewPersona `json:"new_personas,omitempty"`
	Samples               []Sample     `json:"samples"`
	ClusterDone           bool         `json:"cluster_done,omitempty"`
	Force                 bool         `json:"force,omitempty"`
}

// NewPersona is a caller-proposed persona not yet in the registry.
type NewPersona struct {
	Name       string          `json:"name"`
	ToneVector model.ToneVector `json:"tone_vector"`
}

// Sample is one message's caller-LLM analysis.
type Sample struct {
	MessageID   string                `json:"message_id"`
	PersonaName string                `json:"persona_name"`
	Confidence  float64               `json:"confidence"`
	ToneVector  model.ToneVector      `json:"tone_vector"`
	Structural  model.StructuralProfile `json:"structural,omitempty"`
}

// Ingest merges batch into registry, returning the updated registry. The
// registry is mutated in place and also returned for convenience (§4.7).
func (ing *Ingester) Ingest(batch SubmittedBatch, registry *model.PersonaRegistry, run model.ClusterRun) (*model.PersonaRegistry, error) {
	if !batch.CalibrationReferenced {
		return nil, pipelineerrors.NewSchemaError("batch", "calibration_referenced", errRequired("calibration_referenced must be true"))
	}
	if batch.BatchID == "" {
		return nil, pipelineerrors.NewSchemaError("batch", "batch_id", errRequired("batch_id is required"))
	}
	if len(batch.Samples) == 0 {
		return nil, pipelineerrors.NewSchemaError("batch", "samples", errRequired("samples must be non-empty"))
	}

	cluster, ok := run.ByID(batch.ClusterID)
	if !ok {
		return nil, pipelineerrors.NewSchemaError("batch", "cluster_id", errRequired("cluster_id does not exist in the current ClusterRun"))
	}

	newNames := make(map[string]bool, len(batch.NewPersonas))
	for _, np := range batch.NewPersonas {
		newNames[np.Name] = true
	}
	for _, s := range batch.Samples {
		if s.PersonaName == "" {
			return nil, pipelineerrors.NewSchemaError("batch", "samples[].persona_name", errRequired("persona_name is required"))
		}
		_, inRegistry := registry.Personas[s.PersonaName]
		if !inRegistry && !newNames[s.PersonaName] {
			return nil, pipelineerrors.NewSchemaError("batch", "samples[].persona_name",
				errRequired("persona "+s.PersonaName+" is neither in new_personas nor the registry"))
		}
	}

	for _, np := range batch.NewPersonas {
		mergeOrInsertPersona(registry, np, batch.ClusterID)
	}

	for _, s := range batch.Samples {
		applySample(registry, s, batch.ClusterID)
	}

	ingestedForCluster := registry.ClusterCoverage[batch.ClusterID]
	if batch.ClusterDone && !batch.Force {
		required := requiredCount(cluster.Size, ing.coverageTarget)
		if ingestedForCluster < required {
			return nil, pipelineerrors.NewCoverageError(batch.ClusterID, ingestedForCluster, required, cluster.Size)
		}
	}

	return registry, nil
}

func requiredCount(clusterSize int, coverageTarget float64) int {
	required := int(float64(clusterSize)*coverageTarget + 0.999999)
	if required > clusterSize {
		required = clusterSize
	}
	if required < 1 && clusterSize > 0 {
		required = 1
	}
	return required
}

func mergeOrInsertPersona(registry *model.PersonaRegistry, np NewPersona, clusterID int) {
	existing, found := registry.Personas[np.Name]
	if !found {
		registry.Upsert(&model.Persona{
			Name:          np.Name,
			ToneVector:    np.ToneVector,
			ClusterID:     clusterID,
			SchemaVersion: model.PersonaSchemaVersion,
		})
		return
	}

	existing.ToneVector = weightedMeanTone(existing.ToneVector, existing.SampleCount, np.ToneVector, 1)
	existing.ToneVector.Clamp()
}

func applySample(registry *model.PersonaRegistry, s Sample, clusterID int) {
	if registry.IngestedIDs[s.MessageID] != "" {
		return // already ingested; re-submission is a no-op, not a double-count
	}

	persona, found := registry.Personas[s.PersonaName]
	if !found {
		persona = &model.Persona{Name: s.PersonaName, ClusterID: clusterID, SchemaVersion: model.PersonaSchemaVersion}
		registry.Upsert(persona)
	}

	persona.ToneVector = weightedMeanTone(persona.ToneVector, persona.SampleCount, s.ToneVector, 1)
	persona.ToneVector.Clamp()
	persona.Structural = reaggregateStructural(persona.Structural, persona.SampleCount, s.Structural)
	persona.SampleCount++
	persona.Confidence = (persona.Confidence*float64(persona.SampleCount-1) + s.Confidence) / float64(persona.SampleCount)

	persona.Examples = append(persona.Examples, model.FewShotExample{
		MessageID:  s.MessageID,
		Confidence: s.Confidence,
	})
	persona.Examples = topExamples(persona.Examples, maxExamplesPerPersona)

	registry.IngestedIDs[s.MessageID] = s.PersonaName
	registry.ClusterCoverage[clusterID]++
}

// weightedMeanTone merges two tone vectors by existing-vs-incoming sample
// count (§4.7).
func weightedMeanTone(existing model.ToneVector, existingWeight int, incoming model.ToneVector, incomingWeight int) model.ToneVector {
	total := existingWeight + incomingWeight
	if total == 0 {
		return incoming
	}
	mix := func(a, b int) int {
		return (a*existingWeight + b*incomingWeight) / total
	}
	return model.ToneVector{
		Formality:  mix(existing.Formality, incoming.Formality),
		Warmth:     mix(existing.Warmth, incoming.Warmth),
		Authority:  mix(existing.Authority, incoming.Authority),
		Directness: mix(existing.Directness, incoming.Directness),
	}
}

func reaggregateStructural(existing model.StructuralProfile, existingWeight int, incoming model.StructuralProfile) model.StructuralProfile {
	total := float64(existingWeight + 1)
	if total == 0 {
		return incoming
	}
	mix := func(a, b float64) float64 {
		return (a*float64(existingWeight) + b) / total
	}
	out := existing
	out.BulletUsageRate = mix(existing.BulletUsageRate, incoming.BulletUsageRate)
	out.ContractionRate = mix(existing.ContractionRate, incoming.ContractionRate)
	out.AverageLength = mix(existing.AverageLength, incoming.AverageLength)
	if incoming.TypicalGreeting != "" {
		out.TypicalGreeting = incoming.TypicalGreeting
	}
	if incoming.TypicalClosing != "" {
		out.TypicalClosing = incoming.TypicalClosing
	}
	return out
}

// topExamples keeps the limit highest-confidence examples, highest first.
func topExamples(examples []model.FewShotExample, limit int) []model.FewShotExample {
	sorted := append([]model.FewShotExample{}, examples...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Confidence > sorted[j-1].Confidence; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

type ingestError string

func (e ingestError) Error() string { return string(e) }

func errRequired(msg string) error { return ingestError(msg) }
