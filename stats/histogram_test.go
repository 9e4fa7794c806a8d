package stats

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"
)

type labeledInt int

func (l labeledInt) Label() int { return int(l) }

func TestAccumulateAndEntropy(t *testing.T) {
	f := NewFactory(2)
	h := f.New()
	h.AccumulateAll([]Labeled{labeledInt(0), labeledInt(0), labeledInt(1), labeledInt(1)})

	if h.Count() != 4 {
		t.Errorf("expected count 4, got %d", h.Count())
	}

	if e := h.Entropy(); math.Abs(e-1.0) > 1e-9 {
		t.Errorf("expected entropy 1.0, got %f", e)
	}
}

func TestEntropyPure(t *testing.T) {
	f := NewFactory(3)
	h := f.New()
	h.AccumulateAll([]Labeled{labeledInt(2), labeledInt(2), labeledInt(2)})

	if e := h.Entropy(); e != 0 {
		t.Errorf("expected entropy 0 for pure histogram, got %f", e)
	}
}

func TestEntropyBounds(t *testing.T) {
	f := NewFactory(4)
	h := f.New()
	h.AccumulateAll([]Labeled{labeledInt(0), labeledInt(1), labeledInt(2), labeledInt(3)})

	e := h.Entropy()
	maxEntropy := math.Log2(4)
	if e < 0 || e > maxEntropy+1e-9 {
		t.Errorf("expected entropy in [0, %f], got %f", maxEntropy, e)
	}
}

func TestMergeAssociativeCommutative(t *testing.T) {
	f := NewFactory(2)

	a := f.New()
	a.AccumulateAll([]Labeled{labeledInt(0), labeledInt(1)})
	b := f.New()
	b.AccumulateAll([]Labeled{labeledInt(1), labeledInt(1)})
	c := f.New()
	c.AccumulateAll([]Labeled{labeledInt(0)})

	leftFold := a.Merge(b).Merge(c)
	rightFold := a.Merge(b.Merge(c))
	commuted := c.Merge(b).Merge(a)

	for i := 0; i < 2; i++ {
		if leftFold.Counts()[i] != rightFold.Counts()[i] || leftFold.Counts()[i] != commuted.Counts()[i] {
			t.Errorf("merge is not associative/commutative at class %d: %v %v %v", i, leftFold.Counts(), rightFold.Counts(), commuted.Counts())
		}
	}
}

func TestMergeAbsorbsEmpty(t *testing.T) {
	f := NewFactory(2)
	a := f.New()
	a.AccumulateAll([]Labeled{labeledInt(0), labeledInt(1)})

	empty := f.New()

	merged := a.Merge(empty)
	if merged.Count() != a.Count() {
		t.Errorf("merge with empty histogram changed count: %d vs %d", merged.Count(), a.Count())
	}
}

func TestGobRoundTrip(t *testing.T) {
	f := NewFactory(3)
	h := f.New()
	h.AccumulateAll([]Labeled{labeledInt(0), labeledInt(2), labeledInt(2)})

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(h); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var decoded Histogram
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Count() != h.Count() || decoded.Entropy() != h.Entropy() {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, h)
	}
}
