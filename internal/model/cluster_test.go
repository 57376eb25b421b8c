package model

import "testing"

func TestClusterRunNonNoiseClustersExcludesNoise(t *testing.T) {
	run := ClusterRun{
		Clusters: []Cluster{
			{ClusterID: NoiseClusterID, MemberIDs: []string{"m1"}},
			{ClusterID: 0, MemberIDs: []string{"m2", "m3"}},
			{ClusterID: 1, MemberIDs: []string{"m4"}},
		},
	}

	nonNoise := run.NonNoiseClusters()
	if len(nonNoise) != 2 {
		t.Fatalf("expected 2 non-noise clusters, got %d", len(nonNoise))
	}
	for _, c := range nonNoise {
		if c.ClusterID == NoiseClusterID {
			t.Fatalf("noise cluster leaked into NonNoiseClusters")
		}
	}
}

func TestClusterRunMemberIDSetMapsToClusterID(t *testing.T) {
	run := ClusterRun{
		Clusters: []Cluster{
			{ClusterID: NoiseClusterID, MemberIDs: []string{"noisy"}},
			{ClusterID: 0, MemberIDs: []string{"m1", "m2"}},
			{ClusterID: 1, MemberIDs: []string{"m3"}},
		},
	}

	set := run.MemberIDSet()
	if set["m1"] != 0 || set["m2"] != 0 || set["m3"] != 1 {
		t.Fatalf("unexpected member id set: %+v", set)
	}
	if _, ok := set["noisy"]; ok {
		t.Fatalf("noise member should not appear in MemberIDSet")
	}
}

func TestClusterRunByID(t *testing.T) {
	run := ClusterRun{Clusters: []Cluster{{ClusterID: 5, Size: 3}}}

	c, ok := run.ByID(5)
	if !ok || c.Size != 3 {
		t.Fatalf("expected to find cluster 5 with size 3, got %+v ok=%v", c, ok)
	}
	if _, ok := run.ByID(99); ok {
		t.Fatalf("expected ByID to report false for an absent cluster")
	}
}
