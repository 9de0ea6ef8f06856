package ee

import "sort"

// orderedU32Map is a sorted-slice stand-in for the BTreeMap<u32, _>
// original_source uses for the code cache's starts_map: Go's stdlib has no
// ordered map, so predecessor/successor queries are done with sort.Search
// over a slice kept sorted by key. Cache sizes are bounded (spec.md §4.6:
// capacity u16::MAX-1) so linear insert/delete cost here is not a
// bottleneck relative to the JIT compilation it guards.
type orderedU32Map struct {
	keys   []uint32
	values []uint16
}

func (m *orderedU32Map) search(key uint32) (idx int, found bool) {
	idx = sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= key })
	found = idx < len(m.keys) && m.keys[idx] == key
	return idx, found
}

func (m *orderedU32Map) Get(key uint32) (uint16, bool) {
	idx, found := m.search(key)
	if !found {
		return 0, false
	}
	return m.values[idx], true
}

func (m *orderedU32Map) Insert(key uint32, value uint16) {
	idx, found := m.search(key)
	if found {
		m.values[idx] = value
		return
	}
	m.keys = append(m.keys, 0)
	copy(m.keys[idx+1:], m.keys[idx:])
	m.keys[idx] = key
	m.values = append(m.values, 0)
	copy(m.values[idx+1:], m.values[idx:])
	m.values[idx] = value
}

func (m *orderedU32Map) Delete(key uint32) {
	idx, found := m.search(key)
	if !found {
		return
	}
	m.keys = append(m.keys[:idx], m.keys[idx+1:]...)
	m.values = append(m.values[:idx], m.values[idx+1:]...)
}

// FloorIndex returns the index of the greatest key <= key, or -1.
func (m *orderedU32Map) FloorIndex(key uint32) int {
	idx, found := m.search(key)
	if found {
		return idx
	}
	return idx - 1
}

func (m *orderedU32Map) Len() int { return len(m.keys) }
