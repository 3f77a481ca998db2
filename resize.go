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

// resize grows the table to the capacity chosen by the probing strategy.
func (t *Table[K, V]) resize() {
	oldCapacity := t.store.capacity()
	newCapacity := t.probing.Adjust(t.probing.Grow(oldCapacity))
	if newCapacity <= oldCapacity {
		newCapacity = t.probing.Adjust(2*oldCapacity + 1)
	}
	t.rebuild(newCapacity)
}

// rebuild allocates a new store with the specified capacity and
// uncheckedPuts each live entry into it (we know that no insertion here will
// Put an already-present key). Tombstones are not carried over. The old
// store is released to the allocator. The capacity must satisfy the probing
// strategy and hold every live entry.
func (t *Table[K, V]) rebuild(capacity int) {
	if debug {
		fmt.Printf("rebuild: capacity=%d->%d  keys=%d used=%d\n",
			t.store.capacity(), capacity, t.store.keyCount, t.store.usedBuckets)
	}

	old := t.store
	t.store = makeStore(t.allocator, capacity)
	t.threshold = threshold(capacity, t.loadFactor)

	for i := range old.slots {
		if s := &old.slots[i]; s.state == slotOccupied {
			t.uncheckedPut(s.key, s.value)
		}
	}
	t.allocator.FreeSlots(old.slots)

	if t.store.keyCount != old.keyCount {
		panic(fmt.Sprintf("rebuild: carried %d of %d entries", t.store.keyCount, old.keyCount))
	}
}

// uncheckedPut inserts an entry known not to be in the table into the first
// empty slot of its walk. The store must not contain tombstones, which holds
// for a store being filled by resize.
func (t *Table[K, V]) uncheckedPut(key K, value V) {
	seq := makeProbeSeq(t.probing, t.hash(key), t.store.capacity())
	for ; !seq.done(); seq = seq.next() {
		if t.store.slots[seq.offset].state == slotEmpty {
			t.store.occupy(seq.offset, key, value)
			return
		}
	}
	panic(fmt.Sprintf("uncheckedPut(%v): no empty slot: %s\n%s", key, seq, t.debugString()))
}
