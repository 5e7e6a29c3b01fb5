package domain

// Grouped is a map of lists that remembers the order keys were first seen.
type Grouped[K comparable, V any] struct {
	keys  []K
	lists map[K][]V
}

func NewGrouped[K comparable, V any]() *Grouped[K, V] {
	return &Grouped[K, V]{lists: make(map[K][]V)}
}

// Add appends value to the list of key, creating the list if needed.
func (g *Grouped[K, V]) Add(key K, value V) {
	list, ok := g.lists[key]
	if !ok {
		g.keys = append(g.keys, key)
	}
	g.lists[key] = append(list, value)
}

// Keys returns keys in first-insertion order.
func (g *Grouped[K, V]) Keys() []K {
	out := make([]K, len(g.keys))
	copy(out, g.keys)
	return out
}

// Get returns a copy of the list stored under key.
func (g *Grouped[K, V]) Get(key K) []V {
	list := g.lists[key]
	if list == nil {
		return nil
	}
	out := make([]V, len(list))
	copy(out, list)
	return out
}

func (g *Grouped[K, V]) Len() int {
	return len(g.keys)
}
