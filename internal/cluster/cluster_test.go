package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func idsAndRows(n int, dim int) ([]string, []model.Vector) {
	ids := make([]string, n)
	rows := make([]model.Vector, n)
	for i := 0; i < n; i++ {
		ids[i] = fmt.Sprintf("m%03d", i)
		row := make(model.Vector, dim)
		row[0] = float64(i)
		rows[i] = row
	}
	return ids, rows
}

// E3: clusters of size 15 and 12 get IDs 0 and 1 respectively, by size.
func TestAssignIDs_E3_SizeDescending(t *testing.T) {
	ids, rows := idsAndRows(27, 2)
	labels := make([]int, 27)
	for i := 0; i < 15; i++ {
		labels[i] = 0
	}
	for i := 15; i < 27; i++ {
		labels[i] = 1
	}

	clusters := assignIDs(ids, rows, labels)
	require.Len(t, clusters, 2)

	byID := map[int]model.Cluster{}
	for _, c := range clusters {
		byID[c.ClusterID] = c
	}
	assert.Equal(t, 15, byID[0].Size)
	assert.Equal(t, 12, byID[1].Size)
}

// E3: equal-size clusters tie-broken by smallest minimum member ID.
func TestAssignIDs_E3_TieBreakBySmallestMinMemberID(t *testing.T) {
	ids := []string{"m010", "m011", "m001", "m002"}
	rows := []model.Vector{{0}, {1}, {2}, {3}}
	labels := []int{0, 0, 1, 1} // group 0: m010,m011 (min m010); group 1: m001,m002 (min m001)

	clusters := assignIDs(ids, rows, labels)
	require.Len(t, clusters, 2)

	byID := map[int]model.Cluster{}
	for _, c := range clusters {
		byID[c.ClusterID] = c
	}
	assert.Contains(t, byID[0].MemberIDs, "m001")
	assert.Contains(t, byID[1].MemberIDs, "m010")
}

func TestAssignIDs_NoiseKeepsReservedID(t *testing.T) {
	ids, rows := idsAndRows(5, 2)
	labels := []int{0, 0, 0, model.NoiseClusterID, model.NoiseClusterID}

	clusters := assignIDs(ids, rows, labels)
	var noiseCluster *model.Cluster
	for i := range clusters {
		if clusters[i].ClusterID == model.NoiseClusterID {
			noiseCluster = &clusters[i]
		}
	}
	require.NotNil(t, noiseCluster)
	assert.Equal(t, 2, noiseCluster.Size)
}

func TestKMeansPlusPlus_FullCoverageNoNoise(t *testing.T) {
	_, rows := idsAndRows(30, 3)
	labels := kmeansPlusPlus(rows, 4, 42)
	require.Len(t, labels, 30)
	for _, l := range labels {
		assert.NotEqual(t, model.NoiseClusterID, l)
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 4)
	}
}

func TestKMeansPlusPlus_DeterministicForFixedSeed(t *testing.T) {
	_, rows := idsAndRows(20, 3)
	a := kmeansPlusPlus(rows, 3, 7)
	b := kmeansPlusPlus(rows, 3, 7)
	assert.Equal(t, a, b)
}

func TestClustererRun_FallsBackToPartitionalOnHighNoise(t *testing.T) {
	// Sparse, widely separated single-row "clusters" force DBSCAN into
	// mostly-noise territory, triggering the partitional fallback.
	ids := make([]string, 10)
	rows := make([]model.Vector, 10)
	for i := 0; i < 10; i++ {
		ids[i] = fmt.Sprintf("m%03d", i)
		rows[i] = model.Vector{float64(i) * 100}
	}
	matrix := model.EmbeddingMatrix{Index: model.EmbeddingIndex{IDs: ids}, Rows: rows}

	c := New(config.ClusterConfig{Algorithm: AlgorithmDensity, DensityEpsilon: 0.5, DensityMinPoints: 5, MaxNoiseRatio: 0.3, PartitionalK: 3, Seed: 42})
	run := c.Run(matrix)

	assert.Equal(t, AlgorithmPartitional, run.Algorithm)
	assert.Equal(t, 0.0, run.NoiseRatio)
}

func TestClustererRun_RecordsSeed(t *testing.T) {
	ids, rows := idsAndRows(12, 2)
	matrix := model.EmbeddingMatrix{Index: model.EmbeddingIndex{IDs: ids}, Rows: rows}
	c := New(config.ClusterConfig{Algorithm: AlgorithmPartitional, PartitionalK: 3, Seed: 99})

	run := c.Run(matrix)
	assert.Equal(t, int64(99), run.Seed)
}

func TestRecommendedK_HealthHeuristic(t *testing.T) {
	assert.Equal(t, 3, recommendedK(150))
	assert.Equal(t, 4, recommendedK(300))
	assert.Equal(t, 5, recommendedK(600))
}
