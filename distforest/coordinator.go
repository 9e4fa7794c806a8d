// Package distforest implements the distributed, level-synchronous
// forest trainer (spec §4.4): one Coordinator per worker rank wraps a
// levelforest.Trainer and a collective.Group, intercepting each level's
// statistics/split-point/split-statistics exchange exactly where the
// original implementation's DistributedForestTrainer does
// (distributed_forest_trainer.h's exchange_statistics_batch,
// sample_split_points_batch, exchange_split_statistics_batch, and
// broadcast_tree), expressed over Go's gob codec and the collective
// package's in-process Group instead of Boost.MPI.
package distforest

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"

	"github.com/wlattner/distforest/collective"
	"github.com/wlattner/distforest/dtree"
	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/levelforest"
	"github.com/wlattner/distforest/splitpoint"
)

// coordinatorRoot is the rank that draws split-point candidates and whose
// tree is authoritative after every broadcast, matching
// distributed_forest_trainer.h's default root = 0.
const coordinatorRoot = 0

// Coordinator drives one worker's contribution to growing a single tree,
// synchronizing with the rest of its Group once per level.
type Coordinator[Sa any, S learner.Statistics[S], SP any] struct {
	Trainer *levelforest.Trainer[Sa, S, SP]
	Group   collective.Group
}

// NewCoordinator returns a Coordinator over trainer's local shard, bound
// to group.
func NewCoordinator[Sa any, S learner.Statistics[S], SP any](trainer *levelforest.Trainer[Sa, S, SP], group collective.Group) *Coordinator[Sa, S, SP] {
	return &Coordinator[Sa, S, SP]{Trainer: trainer, Group: group}
}

// Train grows the coordinator's tree from depth 1 to the configured max
// depth, synchronizing every level across the whole Group.
func (c *Coordinator[Sa, S, SP]) Train(ctx context.Context, rng *rand.Rand) error {
	for d := 1; d <= c.Trainer.Params.TreeDepth; d++ {
		done, err := c.TrainLevel(ctx, rng)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}
	return nil
}

// TrainLevel runs one level-synchronous round: gather-merge-broadcast
// node Statistics (point A), draw-and-broadcast SplitPoints from rank 0
// (point B), gather-merge-broadcast SplitStatistics (point C), finalize
// locally, then broadcast the resulting Tree (point D) so every worker's
// Tree is bytewise identical regardless of floating point or traversal
// order differences in how each worker reached the same decision.
//
// Every node's Leaf/Internal decision is a deterministic function of the
// merged Statistics, the shared candidate SplitPoints, and the merged
// SplitStatistics, all three of which are identical on every rank after
// this round's exchanges; that is what keeps every rank's frontier node
// set in lockstep without any separate "are we done" reduction.
func (c *Coordinator[Sa, S, SP]) TrainLevel(ctx context.Context, rng *rand.Rand) (done bool, err error) {
	frontier := c.Trainer.Frontier()
	if len(frontier) == 0 {
		return true, nil
	}

	localStats := c.Trainer.ComputeNodeStatisticsBatch(frontier)
	nodeStats, err := c.exchangeStatistics(ctx, localStats)
	if err != nil {
		return false, err
	}

	splits, err := c.sampleSplitPoints(ctx, frontier, nodeStats, rng)
	if err != nil {
		return false, err
	}

	localSplitStats := c.Trainer.ComputeSplitStatisticsBatch(frontier, splits)
	splitStats, err := c.exchangeSplitStatistics(ctx, localSplitStats)
	if err != nil {
		return false, err
	}

	if err := c.Trainer.FinalizeLevel(frontier, nodeStats, splits, splitStats); err != nil {
		return false, err
	}

	if err := c.broadcastTree(ctx); err != nil {
		return false, err
	}

	return false, nil
}

// exchangeStatistics gathers every worker's local node Statistics to
// root, merges same-index entries with Statistics.Merge, and broadcasts
// the merged map back to the whole group.
func (c *Coordinator[Sa, S, SP]) exchangeStatistics(ctx context.Context, local *dtree.TreeNodeMap[S]) (*dtree.TreeNodeMap[S], error) {
	data, err := local.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode local statistics: %v", collective.ErrCollective, err)
	}

	gathered, err := c.Group.Gather(ctx, coordinatorRoot, data)
	if err != nil {
		return nil, err
	}

	merged := dtree.NewTreeNodeMap[S]()
	if c.Group.Rank() == coordinatorRoot {
		for _, raw := range gathered {
			part := dtree.NewTreeNodeMap[S]()
			if err := part.GobDecode(raw.([]byte)); err != nil {
				return nil, fmt.Errorf("%w: decode gathered statistics: %v", collective.ErrCollective, err)
			}
			merged = merged.Merge(part, func(a, b S) S { return a.Merge(b) })
		}
	}

	mergedData, err := merged.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode merged statistics: %v", collective.ErrCollective, err)
	}
	bcast, err := c.Group.Broadcast(ctx, coordinatorRoot, mergedData)
	if err != nil {
		return nil, err
	}

	out := dtree.NewTreeNodeMap[S]()
	if err := out.GobDecode(bcast.([]byte)); err != nil {
		return nil, fmt.Errorf("%w: decode broadcast statistics: %v", collective.ErrCollective, err)
	}
	return out, nil
}

// sampleSplitPoints draws candidate SplitPoints on root only, from the
// already-merged nodeStats -- every other rank's local batch is never
// computed -- then broadcasts the result, matching
// distributed_forest_trainer.h's rank-0-only call to the base
// sample_split_points_batch. Drawing from merged Statistics rather than
// root's own local samples is what makes the candidate set, and hence
// the resulting tree, independent of how the training set was sharded
// (spec §8 invariant 7).
func (c *Coordinator[Sa, S, SP]) sampleSplitPoints(ctx context.Context, frontier []int, nodeStats *dtree.TreeNodeMap[S], rng *rand.Rand) (*dtree.TreeNodeMap[[]SP], error) {
	local := dtree.NewTreeNodeMap[[]SP]()
	if c.Group.Rank() == coordinatorRoot {
		local = c.Trainer.SampleSplitPointsBatch(frontier, nodeStats, rng)
	}

	data, err := local.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode split points: %v", collective.ErrCollective, err)
	}
	bcast, err := c.Group.Broadcast(ctx, coordinatorRoot, data)
	if err != nil {
		return nil, err
	}

	out := dtree.NewTreeNodeMap[[]SP]()
	if err := out.GobDecode(bcast.([]byte)); err != nil {
		return nil, fmt.Errorf("%w: decode broadcast split points: %v", collective.ErrCollective, err)
	}
	return out, nil
}

// exchangeSplitStatistics gathers every worker's local SplitStatistics to
// root, merges same-index entries pair-wise (an empty SplitStatistics
// contributes nothing, matching the original's size()==0 check), and
// broadcasts the merged map back to the whole group.
func (c *Coordinator[Sa, S, SP]) exchangeSplitStatistics(ctx context.Context, local *dtree.TreeNodeMap[splitpoint.Stats[S]]) (*dtree.TreeNodeMap[splitpoint.Stats[S]], error) {
	data, err := local.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode local split statistics: %v", collective.ErrCollective, err)
	}

	gathered, err := c.Group.Gather(ctx, coordinatorRoot, data)
	if err != nil {
		return nil, err
	}

	merged := dtree.NewTreeNodeMap[splitpoint.Stats[S]]()
	if c.Group.Rank() == coordinatorRoot {
		combine := func(a, b splitpoint.Stats[S]) splitpoint.Stats[S] {
			if len(a) == 0 {
				return b
			}
			if len(b) == 0 {
				return a
			}
			return a.Merge(b, func(x, y S) S { return x.Merge(y) })
		}
		for _, raw := range gathered {
			part := dtree.NewTreeNodeMap[splitpoint.Stats[S]]()
			if err := part.GobDecode(raw.([]byte)); err != nil {
				return nil, fmt.Errorf("%w: decode gathered split statistics: %v", collective.ErrCollective, err)
			}
			merged = merged.Merge(part, combine)
		}
	}

	mergedData, err := merged.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("%w: encode merged split statistics: %v", collective.ErrCollective, err)
	}
	bcast, err := c.Group.Broadcast(ctx, coordinatorRoot, mergedData)
	if err != nil {
		return nil, err
	}

	out := dtree.NewTreeNodeMap[splitpoint.Stats[S]]()
	if err := out.GobDecode(bcast.([]byte)); err != nil {
		return nil, fmt.Errorf("%w: decode broadcast split statistics: %v", collective.ErrCollective, err)
	}
	return out, nil
}

// broadcastTree replaces every non-root rank's Tree with a fresh decode
// of root's Tree, so floating point or map-iteration differences across
// workers can never leave two ranks holding divergent trees.
func (c *Coordinator[Sa, S, SP]) broadcastTree(ctx context.Context) error {
	var payload []byte
	if c.Group.Rank() == coordinatorRoot {
		var buf bytes.Buffer
		if err := c.Trainer.Tree.EncodeTo(&buf); err != nil {
			return fmt.Errorf("%w: encode tree for broadcast: %v", collective.ErrCollective, err)
		}
		payload = buf.Bytes()
	}

	v, err := c.Group.Broadcast(ctx, coordinatorRoot, payload)
	if err != nil {
		return err
	}

	if c.Group.Rank() != coordinatorRoot {
		fresh := dtree.Construct[S, SP](c.Trainer.Tree.Depth)
		if err := fresh.DecodeFrom(bytes.NewReader(v.([]byte))); err != nil {
			return fmt.Errorf("%w: decode broadcast tree: %v", collective.ErrCollective, err)
		}
		c.Trainer.Tree = fresh
	}
	return nil
}
