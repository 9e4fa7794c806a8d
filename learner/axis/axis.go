// Package axis implements a concrete axis-aligned-threshold weak learner:
// every SplitPoint is "feature f < threshold". This is the one concrete
// weak learner the repository ships, used by the CLI and by tests; spec
// §1 explicitly keeps concrete weak learners out of the core, so nothing
// in levelforest or distforest imports this package back.
//
// Candidate thresholds are drawn uniformly at random from each feature's
// observed [min, max] range -- the Extra-Trees style split search
// forest.go's own package doc cites (Louppe, "Understanding Random
// Forests", ch. 4), rather than wlattner/rf's tree/classifier.go
// exhaustive scan over every sorted, distinct feature value. The
// exhaustive scan needs every sample's raw feature value, which only the
// worker holding that sample ever sees; sampling from the already-merged
// range in Stats is what lets rank 0 draw an identical candidate set no
// matter how the training set was sharded (spec §8 invariant 7).
package axis

import (
	"math"
	"math/rand"

	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/splitpoint"
	"github.com/wlattner/distforest/stats"
)

// Sample is the minimal view of a training example an axis-aligned
// learner needs: a class label and a fixed-length feature vector.
type Sample interface {
	Label() int
	Features() []float64
}

// SplitPoint is "route to the left child iff Features()[Feature] <
// Threshold".
type SplitPoint struct {
	Feature   int
	Threshold float64
}

// Bound is a feature's observed [Min, Max] range. An accumulator that has
// seen no samples reports Min > Max, which Merge treats as the identity.
type Bound struct {
	Min, Max float64
}

func emptyBound() Bound {
	return Bound{Min: math.Inf(1), Max: math.Inf(-1)}
}

func (b Bound) merge(other Bound) Bound {
	return Bound{Min: math.Min(b.Min, other.Min), Max: math.Max(b.Max, other.Max)}
}

func (b Bound) empty() bool {
	return b.Min > b.Max
}

// Stats is the axis-aligned learner's per-node Statistics: a class
// histogram plus each feature's observed range, so that SampleSplitPoints
// never needs to revisit raw samples.
type Stats struct {
	Hist   stats.Histogram
	Bounds []Bound
}

// Merge combines two Stats of identical shape; the empty Bound is the
// identity, so folding in an empty shard's contribution leaves the other
// side unchanged (spec §4.6's "worker shard empty for a node" case).
func (s Stats) Merge(other Stats) Stats {
	bounds := make([]Bound, len(s.Bounds))
	for i := range bounds {
		bounds[i] = s.Bounds[i].merge(other.Bounds[i])
	}
	return Stats{Hist: s.Hist.Merge(other.Hist), Bounds: bounds}
}

// Entropy delegates to the embedded class histogram.
func (s Stats) Entropy() float64 { return s.Hist.Entropy() }

// Count delegates to the embedded class histogram.
func (s Stats) Count() int { return s.Hist.Count() }

// Learner draws axis-aligned threshold candidates and scores them by
// information gain over Stats.
type Learner struct {
	factory       stats.Factory
	numFeatures   int
	maxFeatures   int
	minLeaf       int
	numCandidates int
}

// New returns a Learner over numClasses classes and numFeatures features,
// considering up to maxFeatures randomly chosen features per node
// (maxFeatures < 0 means consider all features), drawing numCandidates
// random thresholds per chosen feature, and requiring at least minLeaf
// samples on each side of any chosen split.
func New(numClasses, numFeatures, maxFeatures, minLeaf, numCandidates int) *Learner {
	if maxFeatures < 0 || maxFeatures > numFeatures {
		maxFeatures = numFeatures
	}
	if minLeaf < 1 {
		minLeaf = 1
	}
	if numCandidates < 1 {
		numCandidates = 1
	}
	return &Learner{
		factory:       stats.NewFactory(numClasses),
		numFeatures:   numFeatures,
		maxFeatures:   maxFeatures,
		minLeaf:       minLeaf,
		numCandidates: numCandidates,
	}
}

func (l *Learner) emptyBounds() []Bound {
	b := make([]Bound, l.numFeatures)
	for i := range b {
		b[i] = emptyBound()
	}
	return b
}

// CreateStatistics returns an empty Stats accumulator.
func (l *Learner) CreateStatistics() Stats {
	return Stats{Hist: l.factory.New(), Bounds: l.emptyBounds()}
}

// ComputeStatistics summarizes samples into a class histogram and
// per-feature bounds.
func (l *Learner) ComputeStatistics(samples []Sample) Stats {
	s := l.CreateStatistics()
	for _, smp := range samples {
		s.Hist.Accumulate(smp)
		for f, v := range smp.Features() {
			if v < s.Bounds[f].Min {
				s.Bounds[f].Min = v
			}
			if v > s.Bounds[f].Max {
				s.Bounds[f].Max = v
			}
		}
	}
	return s
}

// SampleSplitPoints draws up to l.maxFeatures features (Fisher-Yates) and
// numCandidates uniform random thresholds within parent's observed range
// for each, skipping any feature with fewer than two distinct observed
// values.
func (l *Learner) SampleSplitPoints(parent Stats, rng *rand.Rand) []SplitPoint {
	features := make([]int, l.numFeatures)
	for i := range features {
		features[i] = i
	}

	var candidates []SplitPoint

	j := l.numFeatures - 1
	visited := 0
	for j >= 0 && visited < l.maxFeatures {
		k := rng.Intn(j + 1)
		f := features[k]
		features[k], features[j] = features[j], features[k]
		j--
		visited++

		bound := parent.Bounds[f]
		if bound.empty() || bound.Max-bound.Min <= 1e-12 {
			continue
		}
		for c := 0; c < l.numCandidates; c++ {
			t := bound.Min + rng.Float64()*(bound.Max-bound.Min)
			candidates = append(candidates, SplitPoint{Feature: f, Threshold: t})
		}
	}

	return candidates
}

// ComputeSplitStatistics virtually partitions samples by each candidate
// and tallies a Stats accumulator for each side.
func (l *Learner) ComputeSplitStatistics(samples []Sample, splits []SplitPoint) splitpoint.Stats[Stats] {
	out := make(splitpoint.Stats[Stats], len(splits))
	for i, sp := range splits {
		left := l.CreateStatistics()
		right := l.CreateStatistics()
		for _, smp := range samples {
			side := &right
			if smp.Features()[sp.Feature] < sp.Threshold {
				side = &left
			}
			side.Hist.Accumulate(smp)
			for f, v := range smp.Features() {
				if v < side.Bounds[f].Min {
					side.Bounds[f].Min = v
				}
				if v > side.Bounds[f].Max {
					side.Bounds[f].Max = v
				}
			}
		}
		out[i] = splitpoint.Pair[Stats]{Left: left, Right: right}
	}
	return out
}

// FindBestSplit scores every candidate whose merged left/right count each
// meet minLeaf by information gain, breaking ties toward the lowest
// index. If no candidate meets minLeaf it reports an unconditionally
// rejected gain so the caller always falls back to a Leaf.
func (l *Learner) FindBestSplit(parent Stats, splitStats splitpoint.Stats[Stats]) (int, float64) {
	bestIdx := -1
	bestGain := -1.0
	for i, pair := range splitStats {
		if pair.Left.Count() < l.minLeaf || pair.Right.Count() < l.minLeaf {
			continue
		}
		gain := learner.InformationGain(parent, pair.Left, pair.Right)
		if gain > bestGain {
			bestGain = gain
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, math.Inf(-1)
	}
	return bestIdx, bestGain
}

// Partition reorders samples in place so that samples routed left by sp
// come before samples routed right, returning the split index.
func (l *Learner) Partition(samples []Sample, sp SplitPoint) int {
	i, j := 0, len(samples)
	for i < j {
		if samples[i].Features()[sp.Feature] < sp.Threshold {
			i++
		} else {
			j--
			samples[i], samples[j] = samples[j], samples[i]
		}
	}
	return i
}
