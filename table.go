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

// Package openaddr is a generic open-addressing hash table with pluggable
// probing strategies. See
// https://en.wikipedia.org/wiki/Open_addressing for background.
//
// # Layout
//
// A Table stores every entry directly in a single array of slots. Each slot
// is empty, a tombstone, or occupied by a key and its value. The slot for a
// key is found by walking a probe sequence that starts at hash(key) mod
// capacity and moves by offsets supplied by a Probing strategy:
//
//	i(0) = hash(key) mod capacity
//	i(x) = (i(0) + probe(x)) mod capacity
//
// A walk for a key ends at the occupied slot holding the key, at an empty
// slot (the key is absent), or after capacity attempts. The last condition
// only matters for strategies whose sequence does not reach every slot at the
// current capacity. Quadratic probing, the default, reaches every slot when
// the capacity is a power of two; the initial capacity is not adjusted, but
// every capacity chosen by a resize is.
//
// # Deletion
//
// Removing an entry cannot simply empty its slot: a walk for a key inserted
// after it may have passed over the slot and would now stop early. Removed
// entries are therefore turned into tombstones, which walks step over. A
// tombstone is reused by the next insert whose walk passes over it, and all
// tombstones are dropped when the table is resized.
//
// Lookups that find their key after passing a tombstone move the entry into
// the first tombstone they passed (lazy relocation). This shortens later
// walks for the key without changing the contents of the table, and is not
// counted as a modification.
//
// # Resizing
//
// The table tracks the number of live entries and the number of used
// buckets (live entries plus tombstones). When an insert needs a fresh
// bucket and the used buckets have reached capacity*loadFactor, the table
// grows: the Probing strategy picks a new capacity, a new slot array is
// allocated and every live entry is reinserted. Resizing is not incremental;
// it completes before the triggering Put returns.
//
// # Iteration
//
// Iteration walks the slots in index order. Iterators are fail-fast: a Put,
// Remove or Clear made after an iterator was created causes the iterator to
// stop with ErrConcurrentMutation. The check is advisory, not a lock.
//
// A Table is NOT goroutine-safe.
package openaddr

import (
	"fmt"
	"math"
	"strings"
)

const (
	debug = false

	// DefaultCapacity is the minimum capacity of a Table.
	DefaultCapacity = 7
	// DefaultLoadFactor is the load factor used by callers that have no
	// better choice.
	DefaultLoadFactor = 0.65
)

// Table is a map from keys to values that resolves collisions by open
// addressing. By default, a Table uses the same hash function as Go's builtin
// map[K]V and quadratic probing; the WithHash and WithProbing options override
// these.
type Table[K comparable, V any] struct {
	hash hashFn[K]
	// isNil reports whether a key is nil. It is nil if K cannot hold nil.
	isNil     func(key K) bool
	probing   Probing
	allocator Allocator[K, V]
	store     store[K, V]
	// The load factor supplied at construction. It never changes.
	loadFactor float64
	// The number of used buckets at which the next insert into an empty
	// slot grows the table.
	threshold int
	// mods counts structural modifications. Iterators compare against it to
	// detect mutation during iteration.
	mods uint64
}

// New constructs a new Table with the specified capacity and load factor. The
// capacity is raised to DefaultCapacity if it is smaller. ErrInvalidArgument
// is returned if capacity is not positive or loadFactor is not a positive
// finite number.
func New[K comparable, V any](
	capacity int, loadFactor float64, options ...option[K, V],
) (*Table[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", ErrInvalidArgument, capacity)
	}
	if !(loadFactor > 0) || math.IsInf(loadFactor, 0) {
		return nil, fmt.Errorf("%w: load factor %v", ErrInvalidArgument, loadFactor)
	}

	t := &Table[K, V]{
		hash:       defaultHasher[K](),
		isNil:      nilChecker[K](),
		probing:    Quadratic{},
		allocator:  defaultAllocator[K, V]{},
		loadFactor: loadFactor,
	}
	for _, op := range options {
		op.apply(t)
	}

	capacity = max(DefaultCapacity, capacity)
	t.store = makeStore(t.allocator, capacity)
	t.threshold = threshold(capacity, loadFactor)
	t.checkInvariants()
	return t, nil
}

// Close closes the table, releasing its slots back to the configured
// allocator. It is unnecessary to close a table using the default allocator.
// It is invalid to use a Table after it has been closed, though Close itself
// is idempotent.
func (t *Table[K, V]) Close() {
	if t.store.slots != nil {
		t.allocator.FreeSlots(t.store.slots)
	}
	t.store = store[K, V]{}
}

// Put inserts an entry into the table, overwriting the value of an existing
// entry with the same key. It returns the previous value and replaced=true if
// the key was present.
func (t *Table[K, V]) Put(key K, value V) (old V, replaced bool, err error) {
	if err := t.checkKey(key); err != nil {
		return old, false, err
	}

	var grown bool
	for {
		i, tomb, empty := t.find(key)
		switch {
		case i >= 0:
			// Updating. If the walk passed a tombstone, move the entry there
			// first, as Get would.
			if tomb >= 0 {
				t.store.move(i, tomb)
				i = tomb
			}
			slot := &t.store.slots[i]
			old, slot.value = slot.value, value
			if debug {
				fmt.Printf("put(updating): index=%d key=%v\n", i, key)
			}
			t.mods++
			t.checkInvariants()
			return old, true, nil

		case tomb >= 0:
			// Reusing a tombstone does not consume a bucket, so it never
			// needs to grow the table.
			t.store.occupy(tomb, key, value)
			if debug {
				fmt.Printf("put(reusing): index=%d key=%v keys=%d used=%d\n",
					tomb, key, t.store.keyCount, t.store.usedBuckets)
			}

		case empty >= 0 && (grown || t.store.usedBuckets < t.threshold):
			// After growing once, insert even if the new threshold is still
			// at or below the used count.
			t.store.occupy(empty, key, value)
			if debug {
				fmt.Printf("put(inserting): index=%d key=%v keys=%d used=%d\n",
					empty, key, t.store.keyCount, t.store.usedBuckets)
			}

		default:
			// Either the insert would take the used buckets past the
			// threshold, or the walk was exhausted without seeing a free
			// slot. Grow and walk again under the new capacity.
			t.resize()
			grown = true
			continue
		}

		t.mods++
		t.checkInvariants()
		return old, false, nil
	}
}

// Get retrieves the value from the table for the specified key, returning
// ok=false if the key is not present.
func (t *Table[K, V]) Get(key K) (value V, ok bool, err error) {
	if err := t.checkKey(key); err != nil {
		return value, false, err
	}
	i, ok := t.lookup(key)
	if !ok {
		return value, false, nil
	}
	return t.store.slots[i].value, true, nil
}

// Contains reports whether the table holds an entry for key.
func (t *Table[K, V]) Contains(key K) (bool, error) {
	if err := t.checkKey(key); err != nil {
		return false, err
	}
	_, ok := t.lookup(key)
	return ok, nil
}

// Remove deletes the entry for key from the table, returning its value and
// removed=true if it was present. It is a noop to remove a non-existent key.
func (t *Table[K, V]) Remove(key K) (old V, removed bool, err error) {
	if err := t.checkKey(key); err != nil {
		return old, false, err
	}

	i, _, _ := t.find(key)
	if i < 0 {
		if debug {
			fmt.Printf("remove(not-found): key=%v\n", key)
		}
		return old, false, nil
	}
	old = t.store.bury(i)
	if debug {
		fmt.Printf("remove: index=%d key=%v keys=%d used=%d\n",
			i, key, t.store.keyCount, t.store.usedBuckets)
	}
	t.mods++
	t.checkInvariants()
	return old, true, nil
}

// Clear deletes all entries from the table, retaining its capacity.
func (t *Table[K, V]) Clear() {
	t.store.reset()
	t.mods++
	t.checkInvariants()
}

// Len returns the number of entries in the table.
func (t *Table[K, V]) Len() int {
	return t.store.keyCount
}

// IsEmpty returns true if the table holds no entries.
func (t *Table[K, V]) IsEmpty() bool {
	return t.store.keyCount == 0
}

// Capacity returns the number of slots in the table.
func (t *Table[K, V]) Capacity() int {
	return t.store.capacity()
}

// Keys returns the keys in the table in slot order.
func (t *Table[K, V]) Keys() []K {
	keys := make([]K, 0, t.store.keyCount)
	for i := range t.store.slots {
		if s := &t.store.slots[i]; s.state == slotOccupied {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// Values returns the values in the table in slot order. Values[i] is the
// value of Keys[i].
func (t *Table[K, V]) Values() []V {
	values := make([]V, 0, t.store.keyCount)
	for i := range t.store.slots {
		if s := &t.store.slots[i]; s.state == slotOccupied {
			values = append(values, s.value)
		}
	}
	return values
}

// String renders the entries in slot order as {k1 => v1, k2 => v2}. The
// format is meant for debugging and is not stable.
func (t *Table[K, V]) String() string {
	var buf strings.Builder
	buf.WriteString("{")
	sep := ""
	for i := range t.store.slots {
		if s := &t.store.slots[i]; s.state == slotOccupied {
			fmt.Fprintf(&buf, "%s%v => %v", sep, s.key, s.value)
			sep = ", "
		}
	}
	buf.WriteString("}")
	return buf.String()
}

func (t *Table[K, V]) checkKey(key K) error {
	if t.isNil != nil && t.isNil(key) {
		return fmt.Errorf("%w: nil key", ErrInvalidArgument)
	}
	return nil
}

// find walks the probe sequence for key. match is the index of the occupied
// slot holding key, or -1. tomb is the index of the first tombstone passed
// before the walk stopped, or -1. empty is the index of the empty slot that
// ended an unsuccessful walk, or -1 if the key matched or the walk was
// exhausted.
func (t *Table[K, V]) find(key K) (match, tomb, empty int) {
	seq := makeProbeSeq(t.probing, t.hash(key), t.store.capacity())
	if debug {
		fmt.Printf("find(%v): %s\n", key, seq)
	}

	tomb = -1
	for ; !seq.done(); seq = seq.next() {
		s := &t.store.slots[seq.offset]
		switch s.state {
		case slotEmpty:
			if debug {
				fmt.Printf("find(not-found): offset=%d tomb=%d\n", seq.offset, tomb)
			}
			return -1, tomb, seq.offset
		case slotTombstone:
			if tomb < 0 {
				tomb = seq.offset
			}
		case slotOccupied:
			if s.key == key {
				return seq.offset, tomb, -1
			}
		}
		if debug {
			fmt.Printf("find(skipping): offset=%d state=%s\n", seq.offset, s.state)
		}
	}

	if debug {
		fmt.Printf("find(exhausted): %s tomb=%d\n", seq, tomb)
	}
	return -1, tomb, -1
}

// lookup returns the index of the slot holding key. If the walk passed over
// a tombstone the entry is first moved into the earliest such tombstone so
// that later walks for the key are shorter. The move leaves the logical
// contents unchanged and is deliberately not counted in t.mods.
func (t *Table[K, V]) lookup(key K) (int, bool) {
	i, tomb, _ := t.find(key)
	if i < 0 {
		return -1, false
	}
	if tomb >= 0 {
		t.store.move(i, tomb)
		if debug {
			fmt.Printf("lookup(relocating): key=%v %d -> %d\n", key, i, tomb)
		}
		i = tomb
		t.checkInvariants()
	}
	return i, true
}

// threshold returns floor(capacity * loadFactor), saturating at MaxInt.
func threshold(capacity int, loadFactor float64) int {
	v := math.Floor(float64(capacity) * loadFactor)
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(v)
}

func (t *Table[K, V]) checkInvariants() {
	if invariants {
		// For every occupied slot, verify a walk for its key ends at that
		// slot. Count the number of occupied and tombstone slots.
		var keys, tombstones int
		for i := range t.store.slots {
			s := &t.store.slots[i]
			switch s.state {
			case slotEmpty:
			case slotTombstone:
				tombstones++
			case slotOccupied:
				if j, _, _ := t.find(s.key); j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v found at %d\n%s",
						i, s.key, j, t.debugString()))
				}
				keys++
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): %s\n%s", i, s.state, t.debugString()))
			}
		}

		if keys != t.store.keyCount {
			panic(fmt.Sprintf("invariant failed: found %d occupied slots, but key count is %d\n%s",
				keys, t.store.keyCount, t.debugString()))
		}
		if used := keys + tombstones; used != t.store.usedBuckets {
			panic(fmt.Sprintf("invariant failed: found %d used buckets, but used count is %d\n%s",
				used, t.store.usedBuckets, t.debugString()))
		}
		if expected := threshold(t.store.capacity(), t.loadFactor); t.store.slots != nil &&
			expected != t.threshold {
			panic(fmt.Sprintf("invariant failed: threshold is %d, but expected %d\n%s",
				t.threshold, expected, t.debugString()))
		}
	}
}

func (t *Table[K, V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  keys=%d  used=%d  threshold=%d  mods=%d\n",
		t.store.capacity(), t.store.keyCount, t.store.usedBuckets, t.threshold, t.mods)
	for i := range t.store.slots {
		switch s := &t.store.slots[i]; s.state {
		case slotOccupied:
			fmt.Fprintf(&buf, "  %4d: %v => %v [h=%016x]\n", i, s.key, s.value, t.hash(s.key))
		default:
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s.state)
		}
	}
	return buf.String()
}
