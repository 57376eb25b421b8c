package batch

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func clusterOfSize(n int) model.Cluster {
	members := make([]string, n)
	for i := range members {
		members[i] = fmt.Sprintf("m%03d", i)
	}
	return model.Cluster{ClusterID: 3, MemberIDs: members, Size: n}
}

func runWithCluster(c model.Cluster) model.ClusterRun {
	return model.ClusterRun{Clusters: []model.Cluster{c}, ClusterCount: 1}
}

func sampleBatch(clusterID int, ids []string) SubmittedBatch {
	samples := make([]Sample, len(ids))
	for i, id := range ids {
		samples[i] = Sample{
			MessageID:   id,
			PersonaName: "warm_team_updates",
			Confidence:  0.8,
			ToneVector:  model.ToneVector{Formality: 4, Warmth: 7, Authority: 5, Directness: 6},
		}
	}
	return SubmittedBatch{
		BatchID:               "batch_001",
		ClusterID:             clusterID,
		CalibrationReferenced: true,
		NewPersonas:           []NewPersona{{Name: "warm_team_updates", ToneVector: model.ToneVector{Formality: 4, Warmth: 7, Authority: 5, Directness: 6}}},
		Samples:               samples,
		ClusterDone:           true,
	}
}

func idRange(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%03d", i)
	}
	return ids
}

// E4: 40-member cluster, 31 analysed (77.5%) and marked done -> rejected
// with "31/32 required"; 32 analysed (80%) -> accepted.
func TestIngest_E4_CoverageRejectThenAccept(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(40))

	registry := model.NewPersonaRegistry()
	_, err := ing.Ingest(sampleBatch(3, idRange(31)), registry, run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "31/32")

	registry2 := model.NewPersonaRegistry()
	_, err = ing.Ingest(sampleBatch(3, idRange(32)), registry2, run)
	require.NoError(t, err)
}

func TestIngest_RejectsMissingCalibrationReference(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(10))
	batch := sampleBatch(3, idRange(10))
	batch.CalibrationReferenced = false

	_, err := ing.Ingest(batch, model.NewPersonaRegistry(), run)
	assert.Error(t, err)
}

func TestIngest_RejectsUnknownPersonaName(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(10))
	batch := sampleBatch(3, idRange(10))
	batch.NewPersonas = nil // persona name no longer declared anywhere

	_, err := ing.Ingest(batch, model.NewPersonaRegistry(), run)
	assert.Error(t, err)
}

func TestIngest_ForceOverridesCoverage(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(40))
	batch := sampleBatch(3, idRange(10))
	batch.Force = true

	_, err := ing.Ingest(batch, model.NewPersonaRegistry(), run)
	assert.NoError(t, err)
}

func TestIngest_MergesExistingPersonaByWeightedMean(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(2))

	registry := model.NewPersonaRegistry()
	registry.Upsert(&model.Persona{
		Name:        "warm_team_updates",
		ToneVector:  model.ToneVector{Formality: 2, Warmth: 2, Authority: 2, Directness: 2},
		SampleCount: 1,
	})

	batch := SubmittedBatch{
		BatchID: "b1", ClusterID: 3, CalibrationReferenced: true,
		Samples: []Sample{{
			MessageID: "m001", PersonaName: "warm_team_updates", Confidence: 0.9,
			ToneVector: model.ToneVector{Formality: 8, Warmth: 8, Authority: 8, Directness: 8},
		}},
	}

	updated, err := ing.Ingest(batch, registry, run)
	require.NoError(t, err)
	persona := updated.Personas["warm_team_updates"]
	assert.Equal(t, 5, persona.ToneVector.Formality) // (2*1 + 8*1)/2 = 5
}

func TestIngest_ReingestionOfSameMessageIsNoOp(t *testing.T) {
	ing := NewIngester(0.8)
	run := runWithCluster(clusterOfSize(5))
	registry := model.NewPersonaRegistry()

	batch := sampleBatch(3, []string{"m000"})
	batch.ClusterDone = false
	_, err := ing.Ingest(batch, registry, run)
	require.NoError(t, err)
	firstCount := registry.ClusterCoverage[3]

	_, err = ing.Ingest(batch, registry, run)
	require.NoError(t, err)
	assert.Equal(t, firstCount, registry.ClusterCoverage[3])
}

func TestPreparer_Write_RendersCalibrationSchemaAndMembers(t *testing.T) {
	p := NewPreparer(0.8)
	cluster := clusterOfSize(5)
	members := []model.EnrichedMessage{
		{Filtered: model.FilteredMessage{Message: model.RawMessage{
			Platform: model.PlatformEmail,
			Email:    &model.RawEmail{ID: "m000", Body: "hello there team"},
		}}},
	}

	var buf bytes.Buffer
	err := p.Write(&buf, cluster, members, map[string]bool{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "formality")
	assert.Contains(t, out, "batch_id")
	assert.Contains(t, out, "m000")
}

func TestPreparer_RequiredCount(t *testing.T) {
	p := NewPreparer(0.8)
	assert.Equal(t, 32, p.RequiredCount(40))
}
