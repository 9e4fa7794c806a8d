package distforest

import (
	"bytes"
	"context"
	"testing"

	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/learner/axis"
	"github.com/wlattner/distforest/levelforest"
)

type sample struct {
	label    int
	features []float64
}

func (s sample) Label() int          { return s.label }
func (s sample) Features() []float64 { return s.features }

func newAxisLearner() learner.WeakLearner[axis.Sample, axis.Stats, axis.SplitPoint] {
	return axis.New(2, 1, -1, 1, 16)
}

func twoClusterDataset() []sample {
	var out []sample
	for i := 0; i < 10; i++ {
		out = append(out, sample{label: 0, features: []float64{float64(i)}})
	}
	for i := 0; i < 10; i++ {
		out = append(out, sample{label: 1, features: []float64{float64(i) + 100}})
	}
	return out
}

func roundRobinShard(data []sample, numShards int) []Shard[axis.Sample] {
	shards := make([]Shard[axis.Sample], numShards)
	for i, s := range data {
		r := i % numShards
		shards[r].Samples = append(shards[r].Samples, s)
	}
	return shards
}

func encodeForest(t *testing.T, f *Forest[axis.Stats, axis.SplitPoint]) [][]byte {
	t.Helper()
	out := make([][]byte, len(f.Trees))
	for i, tr := range f.Trees {
		var buf bytes.Buffer
		if err := tr.EncodeTo(&buf); err != nil {
			t.Fatalf("encode tree %d: %v", i, err)
		}
		out[i] = buf.Bytes()
	}
	return out
}

func TestWorkerCountInvariance(t *testing.T) {
	data := twoClusterDataset()
	params := levelforest.Params{NumOfTrees: 3, TreeDepth: 3, MinimumNumOfSamples: 1, MinimumInformationGain: 0}

	forestW1, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 1), newAxisLearner, params, 42)
	if err != nil {
		t.Fatalf("W=1 train: %v", err)
	}
	forestW3, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 3), newAxisLearner, params, 42)
	if err != nil {
		t.Fatalf("W=3 train: %v", err)
	}

	encW1 := encodeForest(t, forestW1)
	encW3 := encodeForest(t, forestW3)
	if len(encW1) != len(encW3) {
		t.Fatalf("expected equal tree counts, got %d and %d", len(encW1), len(encW3))
	}
	for i := range encW1 {
		if !bytes.Equal(encW1[i], encW3[i]) {
			t.Errorf("tree %d differs between W=1 and W=3", i)
		}
	}
}

func TestDeterminismUnderFixedSeed(t *testing.T) {
	data := twoClusterDataset()
	params := levelforest.Params{NumOfTrees: 2, TreeDepth: 3, MinimumNumOfSamples: 1, MinimumInformationGain: 0}

	f1, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 2), newAxisLearner, params, 7)
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	f2, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 2), newAxisLearner, params, 7)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}

	enc1 := encodeForest(t, f1)
	enc2 := encodeForest(t, f2)
	for i := range enc1 {
		if !bytes.Equal(enc1[i], enc2[i]) {
			t.Errorf("tree %d differs across identically-seeded runs", i)
		}
	}
}

func TestEmptyShardIsSafe(t *testing.T) {
	data := twoClusterDataset()
	// 5 shards over 20 samples via round robin leaves every shard
	// non-empty; force one shard to be empty directly to exercise
	// spec §4.6's "worker shard empty for a node" case.
	shards := roundRobinShard(data, 4)
	shards = append(shards, Shard[axis.Sample]{})

	params := levelforest.Params{NumOfTrees: 1, TreeDepth: 3, MinimumNumOfSamples: 1, MinimumInformationGain: 0}
	forest, err := Train[axis.Sample](context.Background(), shards, newAxisLearner, params, 1)
	if err != nil {
		t.Fatalf("train with empty shard: %v", err)
	}
	if len(forest.Trees) != 1 {
		t.Fatalf("expected 1 tree, got %d", len(forest.Trees))
	}

	root := forest.Trees[0].Root()
	rootStats, ok := forest.Trees[0].Statistics(root)
	if !ok {
		t.Fatalf("expected root statistics to be set")
	}
	if rootStats.Count() != len(data) {
		t.Errorf("expected root count %d (empty shard contributing nothing), got %d", len(data), rootStats.Count())
	}
}

func TestRunIDIsStampedAndUnique(t *testing.T) {
	data := twoClusterDataset()
	params := levelforest.Params{NumOfTrees: 1, TreeDepth: 2, MinimumNumOfSamples: 1, MinimumInformationGain: 0}

	f1, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 1), newAxisLearner, params, 1)
	if err != nil {
		t.Fatalf("run 1: %v", err)
	}
	f2, err := Train[axis.Sample](context.Background(), roundRobinShard(data, 1), newAxisLearner, params, 1)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if f1.RunID == "" || f2.RunID == "" {
		t.Fatalf("expected non-empty RunID")
	}
	if f1.RunID == f2.RunID {
		t.Errorf("expected distinct RunID per training run, got the same: %s", f1.RunID)
	}
}
