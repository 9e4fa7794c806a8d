// Package learner defines the weak-learner contract the level trainer
// depends on (spec §4.1). The core never inspects a Sample's fields, a
// Statistics' internals beyond merge/entropy/count, or a SplitPoint's
// representation; it only calls through this interface.
package learner

import (
	"math/rand"

	"github.com/wlattner/distforest/splitpoint"
)

// Statistics is the minimal capability a weak learner's summary type must
// offer for the core to merge and score it: an associative/commutative
// Merge, a Shannon Entropy in bits, and a sample Count. stats.Histogram is
// the canonical implementation.
type Statistics[S any] interface {
	Merge(other S) S
	Entropy() float64
	Count() int
}

// WeakLearner is the pluggable strategy described in spec §4.1 and design
// note §9: realize it as an interface parameterized over the Sample,
// Statistics, and SplitPoint types rather than hard-coding any one
// representation, so axis-aligned thresholds, image-patch features, or any
// other concrete learner can be dropped in unchanged.
//
// Implementations must be deterministic given their RNG argument: calling
// SampleSplitPoints twice with two *rand.Rand values seeded identically
// must return identical candidates, which is what lets the distributed
// coordinator draw candidates on rank 0 only and trust that any worker
// would have computed the same list.
type WeakLearner[Sa any, S Statistics[S], SP any] interface {
	// CreateStatistics returns an empty Statistics of this learner's
	// fixed shape.
	CreateStatistics() S

	// ComputeStatistics summarizes samples.
	ComputeStatistics(samples []Sa) S

	// SampleSplitPoints draws candidate SplitPoints from a node's
	// (possibly cross-worker-merged) parent Statistics using rng. Taking
	// Statistics rather than raw samples is what lets a distributed
	// coordinator call this once on rank 0 after merging every worker's
	// partial Statistics and get a candidate set that does not depend on
	// how the training set happened to be sharded. The number of
	// candidates is governed by the learner's own parameters (e.g. max
	// features to consider).
	SampleSplitPoints(parent S, rng *rand.Rand) []SP

	// ComputeSplitStatistics virtually partitions samples by each
	// candidate in splits and tallies each side, returning one pair per
	// candidate in the same order.
	ComputeSplitStatistics(samples []Sa, splits []SP) splitpoint.Stats[S]

	// FindBestSplit returns the index (into the candidate list that
	// produced splitStats) of the best split and its information gain.
	// Ties are broken toward the lowest index.
	FindBestSplit(parent S, splitStats splitpoint.Stats[S]) (index int, gain float64)

	// Partition reorders samples in place so that samples before the
	// returned index go left of split and samples at/after it go right,
	// returning that index.
	Partition(samples []Sa, split SP) int
}

// InformationGain computes parent entropy minus the sample-weighted child
// entropies, treating 0/0 as 0. It is exposed so weak-learner
// implementations can share one correct definition of spec §4.1's gain
// formula instead of each reimplementing it.
func InformationGain[S Statistics[S]](parent S, left, right S) float64 {
	n := parent.Count()
	if n == 0 {
		return 0
	}
	nL, nR := left.Count(), right.Count()
	fracLeft := float64(nL) / float64(n)
	fracRight := float64(nR) / float64(n)
	return parent.Entropy() - fracLeft*left.Entropy() - fracRight*right.Entropy()
}
