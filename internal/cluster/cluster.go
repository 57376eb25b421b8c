// Package cluster implements the EmailClusterer stage: DBSCAN
// (density-based, default) and k-means++ (partitional, fallback) over the
// embedding matrix, with deterministic ID assignment (§4.5, E3).
package cluster

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

const (
	AlgorithmDensity     = "density"
	AlgorithmPartitional = "partitional"
)

// Clusterer groups an embedding matrix into a ClusterRun.
type Clusterer struct {
	cfg config.ClusterConfig
}

// New returns a Clusterer configured per cfg.
func New(cfg config.ClusterConfig) *Clusterer {
	return &Clusterer{cfg: cfg}
}

// Run clusters matrix, choosing density-based or partitional per cfg and
// the fallback rule (density yields <3 clusters or noise ratio >30% ⇒
// partitional), then assigns IDs deterministically (§4.5).
func (c *Clusterer) Run(matrix model.EmbeddingMatrix) model.ClusterRun {
	minPoints := c.cfg.DensityMinPoints
	if minPoints <= 0 {
		minPoints = 5
	}
	eps := c.cfg.DensityEpsilon
	if eps <= 0 {
		eps = 0.5
	}
	maxNoise := c.cfg.MaxNoiseRatio
	if maxNoise <= 0 {
		maxNoise = 0.3
	}
	seed := c.cfg.Seed
	if seed == 0 {
		seed = 42
	}

	algorithm := c.cfg.Algorithm
	if algorithm == "" {
		algorithm = AlgorithmDensity
	}

	var labels []int // parallel to matrix.Rows; -1 = noise
	var params map[string]any
	used := algorithm

	if algorithm == AlgorithmDensity {
		labels = dbscan(matrix.Rows, eps, minPoints)
		params = map[string]any{"epsilon": eps, "min_points": minPoints}

		nonNoiseClusters := countClusters(labels)
		noiseRatio := noiseRatio(labels)
		if nonNoiseClusters < 3 || noiseRatio > maxNoise {
			used = AlgorithmPartitional
		}
	}

	if used == AlgorithmPartitional {
		k := c.cfg.PartitionalK
		if k <= 0 {
			k = recommendedK(len(matrix.Rows))
		}
		labels = kmeansPlusPlus(matrix.Rows, k, seed)
		params = map[string]any{"k": k}
	}

	clusters := assignIDs(matrix.Index.IDs, matrix.Rows, labels)
	computeSilhouettes(clusters, matrix.Rows, matrix.Index.IDs)

	var overall *float64
	if s := overallSilhouette(clusters); s != nil {
		overall = s
	}

	return model.ClusterRun{
		Algorithm:         used,
		Parameters:        params,
		Clusters:          clusters,
		NoiseRatio:        noiseRatio(labels),
		OverallSilhouette: overall,
		ClusterCount:      countClusters(labels),
		Seed:              seed,
		GeneratedAt:       time.Now().UTC(),
	}
}

// recommendedK follows the corpus-size health heuristic (§4.5).
func recommendedK(n int) int {
	switch {
	case n < 200:
		return 3
	case n < 500:
		return 4
	default:
		return 5
	}
}

func noiseRatio(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	noise := 0
	for _, l := range labels {
		if l == model.NoiseClusterID {
			noise++
		}
	}
	return float64(noise) / float64(len(labels))
}

func countClusters(labels []int) int {
	seen := map[int]bool{}
	for _, l := range labels {
		if l != model.NoiseClusterID {
			seen[l] = true
		}
	}
	return len(seen)
}

// assignIDs groups rows by raw label, then reassigns IDs in
// descending-size order with a smallest-minimum-member-ID tiebreak (§4.5,
// E3). The noise bucket, if any, always keeps ID -1.
func assignIDs(ids []string, rows []model.Vector, labels []int) []model.Cluster {
	type group struct {
		members []int // row indices
	}
	groups := map[int]*group{}
	for i, l := range labels {
		if l == model.NoiseClusterID {
			continue
		}
		if groups[l] == nil {
			groups[l] = &group{}
		}
		groups[l].members = append(groups[l].members, i)
	}

	type candidate struct {
		rows      []int
		minMember string
	}
	candidates := make([]candidate, 0, len(groups))
	for _, g := range groups {
		minID := ids[g.members[0]]
		for _, i := range g.members {
			if ids[i] < minID {
				minID = ids[i]
			}
		}
		candidates = append(candidates, candidate{rows: g.members, minMember: minID})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].rows) != len(candidates[j].rows) {
			return len(candidates[i].rows) > len(candidates[j].rows)
		}
		return candidates[i].minMember < candidates[j].minMember
	})

	clusters := make([]model.Cluster, 0, len(candidates)+1)
	for newID, cand := range candidates {
		memberIDs := make([]string, len(cand.rows))
		for i, rowIdx := range cand.rows {
			memberIDs[i] = ids[rowIdx]
		}
		sort.Strings(memberIDs)
		clusters = append(clusters, model.Cluster{
			ClusterID: newID,
			MemberIDs: memberIDs,
			Centroid:  centroidOf(rows, cand.rows),
			Size:      len(memberIDs),
		})
	}

	var noiseMembers []string
	for i, l := range labels {
		if l == model.NoiseClusterID {
			noiseMembers = append(noiseMembers, ids[i])
		}
	}
	if len(noiseMembers) > 0 {
		sort.Strings(noiseMembers)
		clusters = append(clusters, model.Cluster{
			ClusterID: model.NoiseClusterID,
			MemberIDs: noiseMembers,
			Size:      len(noiseMembers),
		})
	}

	return clusters
}

func centroidOf(rows []model.Vector, memberRows []int) model.Vector {
	if len(memberRows) == 0 {
		return nil
	}
	dim := len(rows[memberRows[0]])
	centroid := make(model.Vector, dim)
	for _, idx := range memberRows {
		for d := 0; d < dim; d++ {
			centroid[d] += rows[idx][d]
		}
	}
	for d := range centroid {
		centroid[d] /= float64(len(memberRows))
	}
	return centroid
}

func euclidean(a, b model.Vector) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// dbscan is a standard density-based clustering pass returning per-row
// labels (0-based cluster index or model.NoiseClusterID).
func dbscan(rows []model.Vector, eps float64, minPoints int) []int {
	n := len(rows)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited sentinel, distinct from NoiseClusterID
	}
	visited := make([]bool, n)
	nextCluster := 0

	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && euclidean(rows[i], rows[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		neigh := neighbors(i)
		if len(neigh)+1 < minPoints {
			labels[i] = model.NoiseClusterID
			continue
		}

		labels[i] = nextCluster
		seeds := append([]int{}, neigh...)
		for k := 0; k < len(seeds); k++ {
			j := seeds[k]
			if labels[j] == model.NoiseClusterID {
				labels[j] = nextCluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			labels[j] = nextCluster
			jn := neighbors(j)
			if len(jn)+1 >= minPoints {
				seeds = append(seeds, jn...)
			}
		}
		nextCluster++
	}

	for i := range labels {
		if labels[i] == -2 {
			labels[i] = model.NoiseClusterID
		}
	}
	return labels
}

// kmeansPlusPlus runs k-means with k-means++ seeding, using the fixed seed
// for both centroid initialization and any tie-breaking, guaranteeing full
// coverage (every row assigned, no noise) (§4.5).
func kmeansPlusPlus(rows []model.Vector, k int, seed int64) []int {
	n := len(rows)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	rng := rand.New(rand.NewSource(seed))

	centroids := make([]model.Vector, 0, k)
	first := rng.Intn(n)
	centroids = append(centroids, append(model.Vector{}, rows[first]...))

	for len(centroids) < k {
		distSq := make([]float64, n)
		var total float64
		for i, row := range rows {
			best := math.Inf(1)
			for _, c := range centroids {
				d := euclidean(row, c)
				if d*d < best {
					best = d * d
				}
			}
			distSq[i] = best
			total += best
		}
		if total == 0 {
			centroids = append(centroids, append(model.Vector{}, rows[rng.Intn(n)]...))
			continue
		}
		target := rng.Float64() * total
		var cum float64
		chosen := n - 1
		for i, d := range distSq {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append(model.Vector{}, rows[chosen]...))
	}

	labels := make([]int, n)
	const maxIterations = 100
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, row := range rows {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := euclidean(row, centroid)
				if d < bestDist {
					bestDist, best = d, c
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}

		sums := make([]model.Vector, k)
		counts := make([]int, k)
		dim := len(rows[0])
		for c := range sums {
			sums[c] = make(model.Vector, dim)
		}
		for i, row := range rows {
			c := labels[i]
			counts[c]++
			for d := 0; d < dim; d++ {
				sums[c][d] += row[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				sums[c][d] /= float64(counts[c])
			}
			centroids[c] = sums[c]
		}

		if !changed {
			break
		}
	}

	return labels
}

// computeSilhouettes fills in per-cluster silhouette scores when at least
// two non-noise clusters exist (§4.5).
func computeSilhouettes(clusters []model.Cluster, rows []model.Vector, ids []string) {
	nonNoise := 0
	for _, c := range clusters {
		if c.ClusterID != model.NoiseClusterID {
			nonNoise++
		}
	}
	if nonNoise < 2 {
		return
	}

	idIndex := make(map[string]int, len(ids))
	for i, id := range ids {
		idIndex[id] = i
	}

	// assignIDs reassigns cluster IDs in descending-size order, so they no
	// longer match the raw labels slice; index neighbors by the reassigned
	// ID instead.
	memberClusterID := make(map[string]int, len(ids))
	for _, c := range clusters {
		for _, memberID := range c.MemberIDs {
			memberClusterID[memberID] = c.ClusterID
		}
	}

	for ci := range clusters {
		c := &clusters[ci]
		if c.ClusterID == model.NoiseClusterID {
			continue
		}
		var sum float64
		for _, memberID := range c.MemberIDs {
			i := idIndex[memberID]
			a := meanDistanceToCluster(rows, ids, memberClusterID, i, c.ClusterID)
			b := math.Inf(1)
			for _, other := range clusters {
				if other.ClusterID == c.ClusterID || other.ClusterID == model.NoiseClusterID {
					continue
				}
				d := meanDistanceToCluster(rows, ids, memberClusterID, i, other.ClusterID)
				if d < b {
					b = d
				}
			}
			s := 0.0
			if maxAB := math.Max(a, b); maxAB > 0 {
				s = (b - a) / maxAB
			}
			sum += s
		}
		avg := sum / float64(len(c.MemberIDs))
		c.Silhouette = &avg
	}
}

func meanDistanceToCluster(rows []model.Vector, ids []string, memberClusterID map[string]int, rowIdx, clusterID int) float64 {
	var sum float64
	count := 0
	for j, id := range ids {
		if memberClusterID[id] != clusterID || j == rowIdx {
			continue
		}
		sum += euclidean(rows[rowIdx], rows[j])
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func overallSilhouette(clusters []model.Cluster) *float64 {
	var sum float64
	var n int
	for _, c := range clusters {
		if c.Silhouette == nil {
			continue
		}
		sum += *c.Silhouette * float64(c.Size)
		n += c.Size
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
