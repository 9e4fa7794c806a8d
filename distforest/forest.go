package distforest

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wlattner/distforest/collective"
	"github.com/wlattner/distforest/dtree"
	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/levelforest"
)

// Forest is a trained ensemble of Trees grown by distributed,
// level-synchronous training, one per requested tree in
// levelforest.Params.NumOfTrees (spec §4.5).
type Forest[S any, SP any] struct {
	// RunID stamps this training run for log correlation, adopting
	// macawi-ai-Strigoi's convention (internal/stream/stdio.go) of
	// tagging a run with a uuid rather than a human-chosen name.
	RunID string
	Trees []*dtree.Tree[S, SP]
}

// Shard describes one worker's partition of the global training set: its
// own samples.
type Shard[Sa any] struct {
	Samples []Sa
}

// Train grows params.NumOfTrees trees, each one trained by spawning
// len(shards) Coordinators -- one per worker rank -- over an in-process
// collective.Group and running them concurrently with errgroup, the way
// macawi-ai-Strigoi's probe module fans out concurrent work under a
// single errgroup.WithContext and propagates the first error (modules/
// probe/west.go). Trees are trained one after another so that tree i+1's
// RNG seed (baseSeed^(i+1), following wlattner/rf's forest.go per-worker
// RandState(int64(id)*time.Now().UnixNano()) seeding idea, made
// deterministic here instead of wall-clock-derived) does not depend on
// how long tree i took to train.
func Train[Sa any, S learner.Statistics[S], SP any](
	ctx context.Context,
	shards []Shard[Sa],
	newLearner func() learner.WeakLearner[Sa, S, SP],
	params levelforest.Params,
	baseSeed int64,
) (*Forest[S, SP], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: at least one shard is required", levelforest.ErrConfiguration)
	}

	forest := &Forest[S, SP]{
		RunID: uuid.New().String(),
		Trees: make([]*dtree.Tree[S, SP], params.NumOfTrees),
	}

	for treeIdx := 0; treeIdx < params.NumOfTrees; treeIdx++ {
		tree, err := trainOneTree(ctx, shards, newLearner, params, baseSeed^int64(treeIdx))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", treeIdx, err)
		}
		forest.Trees[treeIdx] = tree
	}

	return forest, nil
}

// trainOneTree runs one tree's distributed training round-trip across
// len(shards) in-process workers, returning the rank-0 coordinator's
// Tree once every rank's errgroup goroutine has returned (every rank
// holds a bytewise-identical Tree after the last broadcastTree, per
// TrainLevel's doc comment, so any rank's result would do).
func trainOneTree[Sa any, S learner.Statistics[S], SP any](
	ctx context.Context,
	shards []Shard[Sa],
	newLearner func() learner.WeakLearner[Sa, S, SP],
	params levelforest.Params,
	seed int64,
) (*dtree.Tree[S, SP], error) {
	groups := collective.NewInProcessGroup(len(shards))

	var rootTree *dtree.Tree[S, SP]

	g, gctx := errgroup.WithContext(ctx)
	for rank, shard := range shards {
		rank, shard := rank, shard
		g.Go(func() error {
			wl := newLearner()
			trainer := levelforest.New[Sa](shard.Samples, wl, params)
			coord := NewCoordinator[Sa](trainer, groups[rank])

			rng := rand.New(rand.NewSource(seed))
			if err := coord.Train(gctx, rng); err != nil {
				return err
			}
			if rank == coordinatorRoot {
				rootTree = trainer.Tree
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rootTree, nil
}
