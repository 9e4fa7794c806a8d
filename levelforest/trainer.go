// Package levelforest implements the single-worker, level-synchronous
// tree trainer described in spec §4.3: it grows one tree depth-by-depth,
// processing the entire frontier of active nodes as a batch before
// advancing, so that the distributed coordinator in package distforest
// can intercept each batch.
//
// The frontier bookkeeping generalizes wlattner/rf's tree/classifier.go
// recursive stack (stackNode{node, inx, depth}) from depth-first to
// breadth-first: instead of popping one node and recursing into its
// children immediately, every node at the current depth is resolved
// before any node at the next depth is touched.
package levelforest

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/wlattner/distforest/dtree"
	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/splitpoint"
)

// ErrShape reports that a weak learner returned a SplitStatistics whose
// length does not match the candidate list it was computed from, a spec
// §7 Shape error, fatal for the current tree.
var ErrShape = errors.New("levelforest: split statistics length mismatch")

// Range is a contiguous, half-open index range [Lo, Hi) into a Trainer's
// own Samples slice: the "sample shard" of spec §3, owned and reordered
// in place rather than copied.
type Range struct {
	Lo, Hi int
}

// Len returns the number of samples in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Trainer grows one tree level-by-level over a single worker's samples.
// Sa is the Sample type, S the Statistics type, SP the SplitPoint type.
type Trainer[Sa any, S learner.Statistics[S], SP any] struct {
	Tree    *dtree.Tree[S, SP]
	Samples []Sa
	Shards  *dtree.TreeNodeMap[Range]
	Learner learner.WeakLearner[Sa, S, SP]
	Params  Params
}

// New constructs a Trainer over samples (which the Trainer subsequently
// owns and reorders in place) with the root node covering the whole
// slice.
func New[Sa any, S learner.Statistics[S], SP any](samples []Sa, wl learner.WeakLearner[Sa, S, SP], params Params) *Trainer[Sa, S, SP] {
	tr := dtree.Construct[S, SP](params.TreeDepth)
	shards := dtree.NewTreeNodeMap[Range]()
	shards.Insert(tr.Root(), Range{0, len(samples)})
	return &Trainer[Sa, S, SP]{
		Tree:    tr,
		Samples: samples,
		Shards:  shards,
		Learner: wl,
		Params:  params,
	}
}

// Frontier returns the indices of nodes currently awaiting a decision, in
// ascending order (spec §5: "frontier nodes are processed in ascending
// node-index order"). A node appears here exactly when its shard has been
// carved out by a parent split (or, for the root, at construction) and it
// has not yet been resolved to Leaf or Internal.
func (t *Trainer[Sa, S, SP]) Frontier() []int {
	return t.Shards.Indices()
}

// sub returns the sample slice backing node i's shard.
func (t *Trainer[Sa, S, SP]) sub(i int) []Sa {
	r, _ := t.Shards.Get(i)
	return t.Samples[r.Lo:r.Hi]
}

// ComputeNodeStatisticsBatch computes this worker's local Statistics for
// every node in frontier (interception point A of spec §4.4, computed
// here without any cross-worker merge).
func (t *Trainer[Sa, S, SP]) ComputeNodeStatisticsBatch(frontier []int) *dtree.TreeNodeMap[S] {
	out := dtree.NewTreeNodeMap[S]()
	for _, i := range frontier {
		out.Insert(i, t.Learner.ComputeStatistics(t.sub(i)))
	}
	return out
}

// SampleSplitPointsBatch draws candidate SplitPoints for every node in
// frontier from its (possibly cross-worker-merged) nodeStats
// (interception point B of spec §4.4; the distributed coordinator only
// ever calls this on rank 0, passing the post-merge Statistics from point
// A so the candidate set never depends on how samples were sharded).
func (t *Trainer[Sa, S, SP]) SampleSplitPointsBatch(frontier []int, nodeStats *dtree.TreeNodeMap[S], rng *rand.Rand) *dtree.TreeNodeMap[[]SP] {
	out := dtree.NewTreeNodeMap[[]SP]()
	for _, i := range frontier {
		stats, ok := nodeStats.Get(i)
		if !ok {
			stats = t.Learner.CreateStatistics()
		}
		out.Insert(i, t.Learner.SampleSplitPoints(stats, rng))
	}
	return out
}

// ComputeSplitStatisticsBatch computes this worker's local SplitStatistics
// for every node in frontier given its candidate list (interception point
// C of spec §4.4).
func (t *Trainer[Sa, S, SP]) ComputeSplitStatisticsBatch(frontier []int, splits *dtree.TreeNodeMap[[]SP]) *dtree.TreeNodeMap[splitpoint.Stats[S]] {
	out := dtree.NewTreeNodeMap[splitpoint.Stats[S]]()
	for _, i := range frontier {
		sp, _ := splits.Get(i)
		if len(sp) == 0 {
			out.Insert(i, splitpoint.Stats[S]{})
			continue
		}
		out.Insert(i, t.Learner.ComputeSplitStatistics(t.sub(i), sp))
	}
	return out
}

// FinalizeLevel resolves every node in frontier to Leaf or Internal using
// (possibly cross-worker-merged) nodeStats, candidate splits, and
// splitStats, partitioning this worker's local shard for any node that
// becomes Internal. It is the shared tail of spec §4.3 step 2 (b through
// f) and is identical whether nodeStats/splitStats came from a single
// worker or from a coordinator's merge, which is what lets every worker
// reach the same decision from the same inputs (spec §4.4's determinism
// property).
func (t *Trainer[Sa, S, SP]) FinalizeLevel(frontier []int, nodeStats *dtree.TreeNodeMap[S], splits *dtree.TreeNodeMap[[]SP], splitStats *dtree.TreeNodeMap[splitpoint.Stats[S]]) error {
	for _, i := range frontier {
		stats, ok := nodeStats.Get(i)
		if !ok {
			stats = t.Learner.CreateStatistics()
		}
		t.Tree.SetStatistics(i, stats)

		if stats.Count() < t.Params.MinimumNumOfSamples {
			t.Tree.SetLeaf(i)
			t.Shards.Erase(i)
			continue
		}

		cand, _ := splits.Get(i)
		if len(cand) == 0 {
			t.Tree.SetLeaf(i)
			t.Shards.Erase(i)
			continue
		}

		ss, _ := splitStats.Get(i)
		if len(ss) != len(cand) {
			return fmt.Errorf("%w: node %d has %d candidates but %d split statistics", ErrShape, i, len(cand), len(ss))
		}

		bestIdx, gain := t.Learner.FindBestSplit(stats, ss)
		if gain < t.Params.MinimumInformationGain {
			t.Tree.SetLeaf(i)
			t.Shards.Erase(i)
			continue
		}

		if !t.Tree.InBounds(t.Tree.RightChild(i)) {
			// node is already at the tree's configured max depth; its
			// children would fall outside the fixed-capacity buffer.
			t.Tree.SetLeaf(i)
			t.Shards.Erase(i)
			continue
		}

		r, _ := t.Shards.Get(i)
		local := t.Samples[r.Lo:r.Hi]
		splitIdx := t.Learner.Partition(local, cand[bestIdx])

		t.Tree.SetSplit(i, cand[bestIdx])
		t.Shards.Erase(i)
		t.Shards.Insert(t.Tree.LeftChild(i), Range{r.Lo, r.Lo + splitIdx})
		t.Shards.Insert(t.Tree.RightChild(i), Range{r.Lo + splitIdx, r.Hi})
	}
	return nil
}

// TrainLevel runs interception points A-C locally (no cross-worker merge)
// and finalizes the level, returning the frontier it just resolved and
// whether the tree is already fully resolved (an empty next frontier).
func (t *Trainer[Sa, S, SP]) TrainLevel(rng *rand.Rand) (frontier []int, done bool, err error) {
	frontier = t.Frontier()
	if len(frontier) == 0 {
		return frontier, true, nil
	}

	nodeStats := t.ComputeNodeStatisticsBatch(frontier)
	splits := t.SampleSplitPointsBatch(frontier, nodeStats, rng)
	splitStats := t.ComputeSplitStatisticsBatch(frontier, splits)

	if err := t.FinalizeLevel(frontier, nodeStats, splits, splitStats); err != nil {
		return frontier, false, err
	}
	return frontier, t.Shards.Len() == 0, nil
}

// Train grows the tree from depth 1 to Params.TreeDepth, early-exiting
// once every node has resolved to Leaf (spec §4.6).
func (t *Trainer[Sa, S, SP]) Train(rng *rand.Rand) error {
	for d := 1; d <= t.Params.TreeDepth; d++ {
		_, done, err := t.TrainLevel(rng)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}
