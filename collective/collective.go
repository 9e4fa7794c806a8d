// Package collective provides the SPMD collective-communication
// primitives the distributed coordinator needs (spec §4.4): every worker
// runs the same training code and calls Broadcast/Gather in the same
// order, the way boost::mpi::communicator's rank()/size()/broadcast()/
// gather() drive the original implementation's distributed_forest_trainer.
//
// No networking or RPC library appears anywhere in the retrieval pack
// this repository was built from, so the only Group implementation here
// is in-process, backed by goroutines and channels in the style of
// wlattner/rf's forest.go worker pool (its buffered in/out task
// channels), generalized from a work queue into a rendezvous barrier. A
// real deployment would implement Group over gRPC or raw TCP without
// touching any caller of this interface.
package collective

import (
	"context"
	"errors"
)

// ErrCollective reports that a collective operation did not complete, a
// spec §7 Collective failure, fatal for the in-flight training run.
var ErrCollective = errors.New("collective: operation failed")

// Group is one worker's view of a fixed-size SPMD group. Every member
// must call Broadcast and Gather the same number of times, in the same
// order, with the same root, or the group deadlocks or desynchronizes --
// exactly the discipline MPI collectives require.
type Group interface {
	// Rank returns this member's 0-based rank within the group.
	Rank() int

	// Size returns the number of members in the group.
	Size() int

	// Broadcast has root's value observed by every member. Non-root
	// callers' value argument is ignored; every member, including root,
	// receives root's value back.
	Broadcast(ctx context.Context, root int, value any) (any, error)

	// Gather collects one value from every member, in ascending rank
	// order, visible only to root: non-root members receive a nil
	// slice.
	Gather(ctx context.Context, root int, value any) ([]any, error)
}
