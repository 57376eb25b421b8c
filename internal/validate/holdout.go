// Package validate implements the Validator stage: held-out scoring of the
// PersonaRegistry (phase 1) plus interactive feedback recording (phase 2)
// (§4.9).
package validate

import (
	"math"
	"sort"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

// Split partitions message IDs into disjoint training and holdout sets by
// fraction, deterministically (stable sort, no RNG) so the same corpus
// always yields the same split (§4.9, E6, §8 item 8).
func Split(ids []string, holdoutFraction float64) (training, holdout []string) {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	n := int(float64(len(sorted))*holdoutFraction + 0.5)
	if n > len(sorted) {
		n = len(sorted)
	}

	holdout = append(holdout, sorted[:n]...)
	training = append(training, sorted[n:]...)
	return training, holdout
}

// Disjoint reports whether two ID slices share no member (§8 item 8).
func Disjoint(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if set[id] {
			return false
		}
	}
	return true
}

// BuildPairs constructs one ValidationPair per held-out message, assigning
// each to the persona whose cluster centroid its embedding is nearest to.
// Held-out messages never participated in clustering (they were split off
// before preprocessing, §8 item 8), so membership must be inferred rather
// than looked up. `prompt` is derived only from context metadata, never the
// message body, guarding §8 item 7. Messages whose nearest cluster produced
// no persona (below coverage, or noise) are skipped, not errored.
func BuildPairs(holdout []model.EnrichedMessage, embedded map[string]model.Vector, run model.ClusterRun, registry *model.PersonaRegistry) []model.ValidationPair {
	personaByCluster := make(map[int]string, len(registry.Personas))
	for _, name := range registry.Order {
		personaByCluster[registry.Personas[name].ClusterID] = name
	}

	pairs := make([]model.ValidationPair, 0, len(holdout))
	for _, msg := range holdout {
		vec, ok := embedded[msg.ID()]
		if !ok {
			continue
		}
		clusterID, found := nearestCluster(vec, run)
		if !found {
			continue
		}
		personaName, hasPersona := personaByCluster[clusterID]
		if !hasPersona {
			continue
		}
		pairs = append(pairs, model.ValidationPair{
			MessageID:   msg.ID(),
			PersonaName: personaName,
			ClusterID:   clusterID,
			Prompt:      contextPrompt(msg),
			Authentic:   msg.Body(),
		})
	}
	return pairs
}

// nearestCluster assigns a held-out message's embedding to the non-noise
// cluster with the closest centroid by Euclidean distance.
func nearestCluster(vec model.Vector, run model.ClusterRun) (int, bool) {
	best := -1
	bestDist := math.Inf(1)
	for _, c := range run.NonNoiseClusters() {
		d := euclidean(vec, c.Centroid)
		if d < bestDist {
			bestDist = d
			best = c.ClusterID
		}
	}
	return best, best != -1
}

func euclidean(a, b model.Vector) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// contextPrompt renders only the context metadata (recipient type,
// audience, thread position, time of day) — never the message body — so
// the prompt cannot leak the ground-truth reply (§8 item 7).
func contextPrompt(msg model.EnrichedMessage) string {
	ctx := msg.Filtered.Context
	return "recipient_type=" + string(ctx.RecipientType) +
		" audience=" + string(ctx.Audience) +
		" thread_position=" + string(ctx.ThreadPosition) +
		" time_of_day=" + ctx.TimeOfDay
}
