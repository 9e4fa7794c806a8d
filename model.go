package main

import (
	"context"
	"encoding/gob"
	"io"
	"time"

	"github.com/wlattner/distforest/distforest"
	"github.com/wlattner/distforest/learner"
	"github.com/wlattner/distforest/learner/axis"
	"github.com/wlattner/distforest/levelforest"
)

// modelOptions mirrors wlattner/rf's main.go modelOptions, trimmed to the
// parameters the level-synchronous trainer actually takes (spec.md §6)
// plus the shard count standing in for "number of distributed workers".
type modelOptions struct {
	nTree         int
	treeDepth     int
	minSplit      int
	minLeaf       int
	maxFeatures   int
	numCandidates int
	nWorkers      int
}

// Model wraps a trained Forest together with the bookkeeping needed to
// turn CSV rows into predictions and a human-readable report, the same
// role wlattner/rf's Model plays around forest.Classifier.
type Model struct {
	Forest   *distforest.Forest[axis.Stats, axis.SplitPoint]
	Classes  []string
	VarNames []string

	fitTime time.Duration
	nSample int
	opt     modelOptions
}

// Fit shards d's samples round-robin across opt.nWorkers simulated ranks
// and trains a Forest over them.
func (m *Model) Fit(ctx context.Context, d *parsedInput, opt modelOptions) error {
	start := time.Now()

	numFeatures := 0
	if len(d.Samples) > 0 {
		numFeatures = len(d.Samples[0].Features())
	}

	newLearner := func() learner.WeakLearner[axis.Sample, axis.Stats, axis.SplitPoint] {
		return axis.New(len(d.Classes), numFeatures, opt.maxFeatures, opt.minLeaf, opt.numCandidates)
	}

	params := levelforest.Params{
		NumOfTrees:             opt.nTree,
		TreeDepth:              opt.treeDepth,
		MinimumNumOfSamples:    opt.minSplit,
		MinimumInformationGain: 0,
	}

	shards := shardRoundRobin(d.Samples, opt.nWorkers)

	forest, err := distforest.Train[axis.Sample](ctx, shards, newLearner, params, time.Now().UnixNano())
	if err != nil {
		return err
	}

	m.Forest = forest
	m.Classes = d.Classes
	m.VarNames = d.VarNames
	m.fitTime = time.Since(start)
	m.nSample = len(d.Samples)
	m.opt = opt
	return nil
}

func shardRoundRobin(samples []sample, numShards int) []distforest.Shard[axis.Sample] {
	if numShards < 1 {
		numShards = 1
	}
	shards := make([]distforest.Shard[axis.Sample], numShards)
	for i, s := range samples {
		r := i % numShards
		shards[r].Samples = append(shards[r].Samples, s)
	}
	return shards
}

// Predict classifies every row in samples by plurality vote across every
// tree in the Forest.
func (m *Model) Predict(samples []sample) []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		votes := make([]int, len(m.Classes))
		for _, tree := range m.Forest.Trees {
			votes[predictTree(tree, s.Features())]++
		}
		out[i] = m.Classes[argmax(votes)]
	}
	return out
}

func (m *Model) Load(r io.Reader) error {
	d := gob.NewDecoder(r)
	return d.Decode(m)
}

func (m *Model) Save(w io.Writer) error {
	e := gob.NewEncoder(w)
	return e.Encode(m)
}
