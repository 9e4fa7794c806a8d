package dtree

import (
	"bytes"
	"testing"
)

func TestConstructCapacity(t *testing.T) {
	tr := Construct[int, int](3)
	if got, want := tr.Capacity(), 7; got != want {
		t.Errorf("expected capacity %d, got %d", want, got)
	}
}

func TestLeafMonotonicity(t *testing.T) {
	tr := Construct[int, int](2)
	root := tr.Root()
	tr.SetLeaf(root)

	if tr.State(root) != Leaf {
		t.Fatalf("expected root to be Leaf")
	}

	// a node once marked leaf should stay leaf across subsequent calls
	tr.SetLeaf(root)
	if tr.State(root) != Leaf {
		t.Errorf("leaf state did not persist")
	}
}

func TestSplitParentChild(t *testing.T) {
	tr := Construct[int, string](3)
	root := tr.Root()
	tr.SetSplit(root, "feature0<1.5")

	if tr.State(root) != Internal {
		t.Fatalf("expected Internal state after SetSplit")
	}

	l, r := tr.LeftChild(root), tr.RightChild(root)
	if !tr.InBounds(l) || !tr.InBounds(r) {
		t.Fatalf("children out of bounds: %d %d", l, r)
	}
	if tr.Parent(l) != root || tr.Parent(r) != root {
		t.Errorf("children do not point back to root")
	}
}

func TestNodeDepth(t *testing.T) {
	tr := Construct[int, int](4)
	if d := tr.NodeDepth(tr.Root()); d != 1 {
		t.Errorf("expected root depth 1, got %d", d)
	}
	l := tr.LeftChild(tr.Root())
	if d := tr.NodeDepth(l); d != 2 {
		t.Errorf("expected depth 2, got %d", d)
	}
}

func TestGobRoundTrip(t *testing.T) {
	tr := Construct[int, string](2)
	tr.SetSplit(tr.Root(), "split-a")
	tr.SetStatistics(tr.Root(), 42)
	tr.SetLeaf(tr.LeftChild(tr.Root()))

	var buf bytes.Buffer
	if err := tr.EncodeTo(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded := Construct[int, string](2)
	if err := decoded.DecodeFrom(&buf); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.State(decoded.Root()) != Internal {
		t.Errorf("expected decoded root to be Internal")
	}
	sp, ok := decoded.SplitPoint(decoded.Root())
	if !ok || sp != "split-a" {
		t.Errorf("expected split point round trip, got %q ok=%v", sp, ok)
	}
	stat, ok := decoded.Statistics(decoded.Root())
	if !ok || stat != 42 {
		t.Errorf("expected statistics round trip, got %v ok=%v", stat, ok)
	}
}

func TestNodeMapMergeAndOrder(t *testing.T) {
	a := NewTreeNodeMap[int]()
	a.Insert(3, 1)
	a.Insert(1, 2)

	b := NewTreeNodeMap[int]()
	b.Insert(3, 10)
	b.Insert(2, 5)

	merged := a.Merge(b, func(x, y int) int { return x + y })

	if v, ok := merged.Get(3); !ok || v != 11 {
		t.Errorf("expected merged[3]=11, got %v ok=%v", v, ok)
	}
	if v, ok := merged.Get(1); !ok || v != 2 {
		t.Errorf("expected merged[1]=2 (carried through), got %v ok=%v", v, ok)
	}
	if v, ok := merged.Get(2); !ok || v != 5 {
		t.Errorf("expected merged[2]=5 (carried through), got %v ok=%v", v, ok)
	}

	var seen []int
	merged.Each(func(index int, v int) { seen = append(seen, index) })
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("expected ascending iteration order, got %v", seen)
		}
	}
}

func TestNodeMapGobRoundTrip(t *testing.T) {
	m := NewTreeNodeMap[string]()
	m.Insert(5, "five")
	m.Insert(2, "two")

	var buf bytes.Buffer
	enc, err := m.GobEncode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	buf.Write(enc)

	decoded := NewTreeNodeMap[string]()
	if err := decoded.GobDecode(buf.Bytes()); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := decoded.Get(5); !ok || v != "five" {
		t.Errorf("round trip mismatch for index 5: %v ok=%v", v, ok)
	}
}
