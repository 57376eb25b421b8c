package model

import "encoding/json"

// personaAlias avoids infinite recursion when Persona's custom
// (Un)marshalJSON delegates back into encoding/json.
type personaAlias Persona

// MarshalJSON flattens Extra into the top-level object so unknown fields
// received from the caller-LLM survive a load/merge/save round-trip (§6:
// "Unknown fields are preserved on round-trip through the ingester").
func (p Persona) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(personaAlias(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// knownPersonaFields lists the JSON keys owned by Persona's typed fields.
var knownPersonaFields = map[string]bool{
	"name": true, "tone_vector": true, "structural": true, "recipients": true,
	"examples": true, "cluster_id": true, "confidence": true,
	"schema_version": true, "sample_count": true,
}

// UnmarshalJSON decodes the known fields into Persona and stashes every
// other top-level key into Extra.
func (p *Persona) UnmarshalJSON(data []byte) error {
	var alias personaAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*p = Persona(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if knownPersonaFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = val
	}
	return nil
}
