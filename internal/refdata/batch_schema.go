package refdata

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// BatchFile is the caller-LLM's submission for one cluster: the Go struct
// both the advertised JSON Schema and the ingester's validation are
// generated from / checked against (§4.7).
type BatchFile struct {
	BatchID               string                 `json:"batch_id" jsonschema:"required,description=Unique identifier for this batch submission"`
	ClusterID             int                    `json:"cluster_id" jsonschema:"required,description=The cluster this batch analyses"`
	CalibrationReferenced bool                    `json:"calibration_referenced" jsonschema:"required,description=Must be true; confirms the calibration anchors were consulted"`
	NewPersonas           []PersonaTemplate       `json:"new_personas" jsonschema:"description=Persona templates not yet in the registry"`
	Samples               []SampleAnalysis        `json:"samples" jsonschema:"required,description=Per-message analyses"`
}

// PersonaTemplate is a caller-proposed persona, prior to merge bookkeeping.
type PersonaTemplate struct {
	Name       string         `json:"name" jsonschema:"required"`
	ToneVector ToneVectorJSON `json:"tone_vector" jsonschema:"required"`
}

// ToneVectorJSON mirrors model.ToneVector for schema-generation purposes,
// keeping internal/refdata free of an internal/model import cycle risk.
type ToneVectorJSON struct {
	Formality  int `json:"formality" jsonschema:"required,minimum=1,maximum=10"`
	Warmth     int `json:"warmth" jsonschema:"required,minimum=1,maximum=10"`
	Authority  int `json:"authority" jsonschema:"required,minimum=1,maximum=10"`
	Directness int `json:"directness" jsonschema:"required,minimum=1,maximum=10"`
}

// SampleAnalysis is one message's caller-LLM analysis.
type SampleAnalysis struct {
	MessageID  string         `json:"message_id" jsonschema:"required"`
	PersonaName string        `json:"persona_name" jsonschema:"required"`
	Confidence float64        `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
	ToneVector ToneVectorJSON `json:"tone_vector" jsonschema:"required"`
	Structural map[string]any `json:"structural,omitempty"`
}

// BatchSchema generates the JSON Schema document advertised to the
// caller-LLM, from the same BatchFile struct the ingester validates
// against, so the two never drift (§11.5).
func BatchSchema() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(&BatchFile{})

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}
