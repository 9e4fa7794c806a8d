package main

import (
	"fmt"
	"io"

	"github.com/wlattner/distforest/dtree"
	"github.com/wlattner/distforest/learner/axis"
)

// predictTree walks tree from the root, routing left/right by the node's
// axis-aligned test until it reaches a Leaf, then returns that leaf's
// majority class.
func predictTree(tree *dtree.Tree[axis.Stats, axis.SplitPoint], x []float64) int {
	i := tree.Root()
	for tree.State(i) == dtree.Internal {
		sp, _ := tree.SplitPoint(i)
		if x[sp.Feature] < sp.Threshold {
			i = tree.LeftChild(i)
		} else {
			i = tree.RightChild(i)
		}
	}
	st, _ := tree.Statistics(i)
	return st.Hist.MajorityClass()
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

// Report writes a training summary: run id, fit time, and in-sample
// accuracy/confusion matrix. The trainer never resamples (no bagging),
// so there is no out-of-bag holdout to score against the way
// wlattner/rf's forest.Classifier.ComputeOOB does; this is an in-sample
// figure, labeled as such.
func (m *Model) Report(w io.Writer, samples []sample) {
	fmt.Fprintf(w, "run %s: fit %d trees (depth %d) over %d examples in %.2fs\n",
		m.Forest.RunID, m.opt.nTree, m.opt.treeDepth, m.nSample, m.fitTime.Seconds())
	fmt.Fprintf(w, "\n")

	m.reportConfusionMatrix(w, samples)
}

func (m *Model) reportConfusionMatrix(w io.Writer, samples []sample) {
	n := len(m.Classes)
	confusion := make([][]int, n)
	for i := range confusion {
		confusion[i] = make([]int, n)
	}

	correct := 0
	for _, s := range samples {
		votes := make([]int, n)
		for _, tree := range m.Forest.Trees {
			votes[predictTree(tree, s.Features())]++
		}
		predicted := argmax(votes)
		confusion[s.Label()][predicted]++
		if predicted == s.Label() {
			correct++
		}
	}

	fmt.Fprintf(w, "Confusion Matrix (in-sample)\n")
	fmt.Fprintf(w, "----------------------------\n")
	fmt.Fprintf(w, "%-14s ", "")
	for _, class := range m.Classes {
		fmt.Fprintf(w, "%-14s ", class)
	}
	fmt.Fprintf(w, "\n")

	for actualID, class := range m.Classes {
		fmt.Fprintf(w, "%-14s ", class)
		for predictedID := range m.Classes {
			fmt.Fprintf(w, "%-14d ", confusion[actualID][predictedID])
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\n")
	if len(samples) > 0 {
		fmt.Fprintf(w, "In-sample accuracy: %.2f%%\n", 100*float64(correct)/float64(len(samples)))
	}
}
