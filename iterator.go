// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openaddr

import "fmt"

// Iterator walks the entries of a Table in slot order. It is forward-only and
// cannot be restarted; create a new Iterator for another pass.
//
//	it := t.Iter()
//	for it.Next() {
//	  fmt.Printf("%v: %v\n", it.Key(), it.Value())
//	}
//	if err := it.Err(); err != nil {
//	  ...
//	}
type Iterator[K comparable, V any] struct {
	t *Table[K, V]
	// The value of t.mods when the iterator was created.
	mods  uint64
	index int
	key   K
	value V
	done  bool
	err   error
}

// Iter returns an iterator positioned before the first entry of the table.
//
// If the table is modified by Put, Remove or Clear after Iter returns, the
// next call to Next returns false and Err returns ErrConcurrentMutation. The
// lazy relocation performed by Get and Contains is not a modification, but it
// moves an entry to an earlier slot of its probe sequence. Since sequences
// wrap around the end of the table, that slot may lie behind the iterator, in
// which case the entry is not returned, or ahead of it, in which case the
// entry is returned a second time.
func (t *Table[K, V]) Iter() *Iterator[K, V] {
	return &Iterator[K, V]{t: t, mods: t.mods}
}

// Next advances the iterator to the next entry, returning false when there
// are no more entries or the table was modified.
func (it *Iterator[K, V]) Next() bool {
	if it.done {
		return false
	}
	if it.t.mods != it.mods {
		it.err = fmt.Errorf("%w: %d modifications since iteration began",
			ErrConcurrentMutation, it.t.mods-it.mods)
		it.finish()
		return false
	}

	slots := it.t.store.slots
	for ; it.index < len(slots); it.index++ {
		if s := &slots[it.index]; s.state == slotOccupied {
			it.key, it.value = s.key, s.value
			it.index++
			return true
		}
	}
	it.finish()
	return false
}

// Key returns the key of the current entry.
func (it *Iterator[K, V]) Key() K {
	return it.key
}

// Value returns the value of the current entry.
func (it *Iterator[K, V]) Value() V {
	return it.value
}

// Err returns ErrConcurrentMutation (wrapped) if iteration stopped because
// the table was modified, and nil otherwise.
func (it *Iterator[K, V]) Err() error {
	return it.err
}

func (it *Iterator[K, V]) finish() {
	var key K
	var value V
	it.key, it.value = key, value
	it.done = true
}

// All calls yield sequentially for each key and value present in the table,
// in slot order. If yield returns false, All stops the iteration. If yield
// (or anything else) modifies the table with Put, Remove or Clear, iteration
// stops at the next step and All returns ErrConcurrentMutation.
func (t *Table[K, V]) All(yield func(key K, value V) bool) error {
	it := t.Iter()
	for it.Next() {
		if !yield(it.Key(), it.Value()) {
			return nil
		}
	}
	return it.Err()
}
