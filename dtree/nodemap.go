package dtree

import "sort"

// TreeNodeMap maps active node indices (within one Tree) to a payload V.
// Iteration is always in ascending node-index order so that two workers
// processing the same map observe the same order, per spec §3.
type TreeNodeMap[V any] struct {
	values map[int]V
}

// NewTreeNodeMap returns an empty TreeNodeMap.
func NewTreeNodeMap[V any]() *TreeNodeMap[V] {
	return &TreeNodeMap[V]{values: make(map[int]V)}
}

// Insert stores v under node index i, replacing any existing value.
func (m *TreeNodeMap[V]) Insert(i int, v V) {
	if m.values == nil {
		m.values = make(map[int]V)
	}
	m.values[i] = v
}

// Get returns the value stored for i and whether one was present.
func (m *TreeNodeMap[V]) Get(i int) (V, bool) {
	v, ok := m.values[i]
	return v, ok
}

// Erase removes any value stored for i.
func (m *TreeNodeMap[V]) Erase(i int) {
	delete(m.values, i)
}

// Len returns the number of entries.
func (m *TreeNodeMap[V]) Len() int {
	return len(m.values)
}

// Indices returns the map's node indices in ascending order.
func (m *TreeNodeMap[V]) Indices() []int {
	out := make([]int, 0, len(m.values))
	for i := range m.values {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Each calls fn for every (index, value) pair in ascending index order.
func (m *TreeNodeMap[V]) Each(fn func(index int, v V)) {
	for _, i := range m.Indices() {
		fn(i, m.values[i])
	}
}

// Combiner merges two values of identical shape, used by Merge.
type Combiner[V any] func(a, b V) V

// Merge returns a new TreeNodeMap containing, for every index present in
// either m or other, the combined value. An index present in only one map
// is carried through unchanged, matching spec §4.6's rule that a missing
// shard contributes the merge identity.
func (m *TreeNodeMap[V]) Merge(other *TreeNodeMap[V], combine Combiner[V]) *TreeNodeMap[V] {
	out := NewTreeNodeMap[V]()
	for i, v := range m.values {
		out.values[i] = v
	}
	for i, v := range other.values {
		if existing, ok := out.values[i]; ok {
			out.values[i] = combine(existing, v)
		} else {
			out.values[i] = v
		}
	}
	return out
}

// wireEntry is the (index, value) pair gob shape used for serialization.
type wireEntry[V any] struct {
	Index int
	Value V
}

// GobEncode implements gob.GobEncoder by writing entries in ascending
// index order, so the byte stream is stable across workers built from the
// same source, per spec §6.
func (m TreeNodeMap[V]) GobEncode() ([]byte, error) {
	entries := make([]wireEntry[V], 0, len(m.values))
	for _, i := range m.Indices() {
		entries = append(entries, wireEntry[V]{Index: i, Value: m.values[i]})
	}
	return gobEncodeAny(entries)
}

// GobDecode implements gob.GobDecoder.
func (m *TreeNodeMap[V]) GobDecode(data []byte) error {
	var entries []wireEntry[V]
	if err := gobDecodeAny(data, &entries); err != nil {
		return err
	}
	m.values = make(map[int]V, len(entries))
	for _, e := range entries {
		m.values[e.Index] = e.Value
	}
	return nil
}
