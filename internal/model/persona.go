package model

// ToneVector holds the four canonical voice dimensions, each an integer in
// [1,10] (§3, glossary).
type ToneVector struct {
	Formality  int `json:"formality"`
	Warmth     int `json:"warmth"`
	Authority  int `json:"authority"`
	Directness int `json:"directness"`
}

// Clamp forces every component into [1,10].
func (t *ToneVector) Clamp() {
	t.Formality = clampInt(t.Formality, 1, 10)
	t.Warmth = clampInt(t.Warmth, 1, 10)
	t.Authority = clampInt(t.Authority, 1, 10)
	t.Directness = clampInt(t.Directness, 1, 10)
}

// InRange reports whether every component is a valid tone score.
func (t ToneVector) InRange() bool {
	return inRange(t.Formality) && inRange(t.Warmth) && inRange(t.Authority) && inRange(t.Directness)
}

func inRange(v int) bool { return v >= 1 && v <= 10 }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StructuralProfile summarizes the structural descriptors of a persona.
type StructuralProfile struct {
	TypicalGreeting string  `json:"typical_greeting"`
	TypicalClosing  string  `json:"typical_closing"`
	BulletUsageRate float64 `json:"bullet_usage_rate"`
	ContractionRate float64 `json:"contraction_rate"`
	AverageLength   float64 `json:"average_length"`
}

// RecipientProfile summarizes which recipient types dominate a persona's
// originating cluster.
type RecipientProfile struct {
	DominantRecipientTypes []RecipientType `json:"dominant_recipient_types"`
	DominantAudience       Audience        `json:"dominant_audience"`
}

// FewShotExample is one annotated example drawn from a cluster's
// highest-confidence members (§3).
type FewShotExample struct {
	MessageID  string  `json:"message_id"`
	Excerpt    string  `json:"excerpt"`
	Confidence float64 `json:"confidence"`
	Annotation string  `json:"annotation,omitempty"`
}

// PersonaSchemaVersion is the current schema version stamped on new personas.
const PersonaSchemaVersion = 1

// Persona is the semantic output of analysing one email cluster (§3).
type Persona struct {
	Name              string             `json:"name"`
	ToneVector        ToneVector         `json:"tone_vector"`
	Structural        StructuralProfile  `json:"structural"`
	Recipients        RecipientProfile   `json:"recipients"`
	Examples          []FewShotExample   `json:"examples"`
	ClusterID         int                `json:"cluster_id"`
	Confidence        float64            `json:"confidence"`
	SchemaVersion     int                `json:"schema_version"`
	SampleCount       int                `json:"sample_count"`

	// Unknown fields round-tripped from caller-LLM output, preserved
	// verbatim on merge (§6, Schemas).
	Extra map[string]any `json:"-"`
}

// PersonaRegistry is the ordered mapping from persona name to Persona plus
// ingestion bookkeeping (§3).
type PersonaRegistry struct {
	Personas map[string]*Persona `json:"personas"`
	Order    []string            `json:"order"`

	// IngestedIDs maps message ID -> persona name, for every message that
	// has been merged into a persona.
	IngestedIDs map[string]string `json:"ingested_ids"`

	// ClusterCoverage maps cluster_id -> count of ingested members, used to
	// enforce the 80% coverage invariant (§3, §4.7).
	ClusterCoverage map[int]int `json:"cluster_coverage"`
}

// NewPersonaRegistry returns an empty, initialized registry.
func NewPersonaRegistry() *PersonaRegistry {
	return &PersonaRegistry{
		Personas:        make(map[string]*Persona),
		IngestedIDs:     make(map[string]string),
		ClusterCoverage: make(map[int]int),
	}
}

// Upsert inserts a persona if absent, appending it to Order; callers handle
// the merge-vs-insert decision (§4.7).
func (r *PersonaRegistry) Upsert(p *Persona) {
	if _, exists := r.Personas[p.Name]; !exists {
		r.Order = append(r.Order, p.Name)
	}
	r.Personas[p.Name] = p
}

// CoveragePct returns the ingested fraction of a cluster of the given size.
func (r *PersonaRegistry) CoveragePct(clusterID, clusterSize int) float64 {
	if clusterSize == 0 {
		return 0
	}
	return float64(r.ClusterCoverage[clusterID]) / float64(clusterSize)
}
