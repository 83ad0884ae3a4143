// Package reconcile implements keyed reconciliation for repeating views:
// given the keys rendered last time and the keys to render now, it decides
// which instances are reused, which are created, which are removed and
// which must move.
package reconcile

import (
	"fmt"
	"sort"
)

// Plan describes how to turn a previous key list into the next one.
type Plan struct {
	// Reuse maps each next position to the previous position whose
	// instance it reuses, or -1 when a new instance is created.
	Reuse []int
	// Removed lists previous positions with no counterpart, ascending.
	Removed []int
	// Moved lists next positions whose reused instance must be moved to
	// restore document order. Instances outside it keep their place.
	Moved []int
}

// Created returns the next positions that need a new instance.
func (p Plan) Created() []int {
	var out []int
	for i, prev := range p.Reuse {
		if prev < 0 {
			out = append(out, i)
		}
	}
	return out
}

// IsNoop reports whether the plan changes nothing.
func (p Plan) IsNoop() bool {
	if len(p.Removed) > 0 || len(p.Moved) > 0 {
		return false
	}
	for i, prev := range p.Reuse {
		if prev != i {
			return false
		}
	}
	return true
}

// DuplicateKeyError reports a key that appears twice in one list.
type DuplicateKeyError struct {
	Key   string
	First int
	Again int
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s at positions %d and %d", e.Key, e.First, e.Again)
}

// Diff computes the plan from prev to next. Keys must be unique within
// each list.
func Diff[K comparable](prev, next []K) (Plan, error) {
	prevIndex, err := indexKeys(prev)
	if err != nil {
		return Plan{}, err
	}
	if _, err := indexKeys(next); err != nil {
		return Plan{}, err
	}

	plan := Plan{Reuse: make([]int, len(next))}
	matched := make([]bool, len(prev))
	for i, key := range next {
		j, ok := prevIndex[key]
		if !ok {
			plan.Reuse[i] = -1
			continue
		}
		plan.Reuse[i] = j
		matched[j] = true
	}
	for j, ok := range matched {
		if !ok {
			plan.Removed = append(plan.Removed, j)
		}
	}
	plan.Moved = moves(plan.Reuse)
	return plan, nil
}

func indexKeys[K comparable](keys []K) (map[K]int, error) {
	index := make(map[K]int, len(keys))
	for i, key := range keys {
		if first, dup := index[key]; dup {
			return nil, &DuplicateKeyError{Key: fmt.Sprint(key), First: first, Again: i}
		}
		index[key] = i
	}
	return index, nil
}

// moves returns the reused next positions that are not part of the longest
// run of previous positions already in increasing order.
func moves(reuse []int) []int {
	var positions []int // next positions of reused instances
	for i, prev := range reuse {
		if prev >= 0 {
			positions = append(positions, i)
		}
	}

	// Patience sorting: tails[k] is the index into positions of the
	// smallest tail of an increasing run of length k+1.
	var tails []int
	parent := make([]int, len(positions))
	for p, i := range positions {
		k := sort.Search(len(tails), func(k int) bool { return reuse[positions[tails[k]]] >= reuse[i] })
		if k > 0 {
			parent[p] = tails[k-1]
		} else {
			parent[p] = -1
		}
		if k == len(tails) {
			tails = append(tails, p)
		} else {
			tails[k] = p
		}
	}

	stable := make(map[int]bool, len(tails))
	if len(tails) > 0 {
		for p := tails[len(tails)-1]; p >= 0; p = parent[p] {
			stable[positions[p]] = true
		}
	}

	var out []int
	for _, i := range positions {
		if !stable[i] {
			out = append(out, i)
		}
	}
	return out
}

// Instances keeps one instance per key across updates.
type Instances[K comparable, V any] struct {
	keys  []K
	items []V
}

// Update replaces the key list, reusing the instance of every key that was
// already present and calling create for the others. Instances of keys no
// longer present are dropped. On error nothing changes.
func (s *Instances[K, V]) Update(keys []K, create func(key K) V) (Plan, error) {
	plan, err := Diff(s.keys, keys)
	if err != nil {
		return Plan{}, err
	}
	items := make([]V, len(keys))
	for i, prev := range plan.Reuse {
		if prev >= 0 {
			items[i] = s.items[prev]
		} else {
			items[i] = create(keys[i])
		}
	}
	s.keys = append([]K(nil), keys...)
	s.items = items
	return plan, nil
}

// Len returns the number of instances.
func (s *Instances[K, V]) Len() int { return len(s.items) }

// Items returns the instances in key order.
func (s *Instances[K, V]) Items() []V { return append([]V(nil), s.items...) }

// Keys returns the current keys.
func (s *Instances[K, V]) Keys() []K { return append([]K(nil), s.keys...) }

// Get returns the instance for key.
func (s *Instances[K, V]) Get(key K) (V, bool) {
	for i, k := range s.keys {
		if k == key {
			return s.items[i], true
		}
	}
	var zero V
	return zero, false
}

// KeysOf extracts the keys of items.
func KeysOf[T any, K comparable](items []T, key func(T) K) []K {
	out := make([]K, len(items))
	for i, item := range items {
		out[i] = key(item)
	}
	return out
}

// Positions returns 0..n-1, the keys of an unkeyed repeating view, whose
// instances are matched by position.
func Positions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
