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

// Each slot in the table is in exactly one of three states. The zero value is
// slotEmpty so freshly allocated slots need no initialization.
//
//	    empty: never held an entry since the store was created or cleared
//	tombstone: held an entry that was removed; probing continues past it
//	 occupied: holds a key and its value
type slotState uint8

const (
	slotEmpty slotState = iota
	slotTombstone
	slotOccupied
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotTombstone:
		return "tombstone"
	case slotOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("slotState(%d)", uint8(s))
	}
}

// Slot holds a key and value. The key and value are only meaningful while the
// slot is occupied; empty and tombstone slots hold zero values.
type Slot[K comparable, V any] struct {
	state slotState
	key   K
	value V
}

// store is the fixed-capacity backing array of a Table along with its
// occupancy counters. A store never changes capacity: growing a table builds
// a new store and drops the old one.
type store[K comparable, V any] struct {
	slots []Slot[K, V]
	// The number of occupied slots (i.e. the number of entries).
	keyCount int
	// The number of occupied and tombstone slots. Tombstones are included
	// because they lengthen probe walks just like live entries do.
	usedBuckets int
}

func makeStore[K comparable, V any](allocator Allocator[K, V], capacity int) store[K, V] {
	return store[K, V]{slots: allocator.AllocSlots(capacity)}
}

func (s *store[K, V]) capacity() int {
	return len(s.slots)
}

// occupy places key and value into slot i, which must be empty or a
// tombstone.
func (s *store[K, V]) occupy(i int, key K, value V) {
	slot := &s.slots[i]
	switch slot.state {
	case slotEmpty:
		s.usedBuckets++
	case slotTombstone:
	default:
		panic(fmt.Sprintf("occupy: slot %d is %s", i, slot.state))
	}
	*slot = Slot[K, V]{state: slotOccupied, key: key, value: value}
	s.keyCount++
}

// bury turns occupied slot i into a tombstone and returns the value it held.
func (s *store[K, V]) bury(i int) V {
	slot := &s.slots[i]
	if slot.state != slotOccupied {
		panic(fmt.Sprintf("bury: slot %d is %s", i, slot.state))
	}
	value := slot.value
	*slot = Slot[K, V]{state: slotTombstone}
	s.keyCount--
	return value
}

// move relocates the entry in occupied slot from into tombstone slot to,
// leaving a tombstone behind. The counters are unchanged.
func (s *store[K, V]) move(from, to int) {
	src, dst := &s.slots[from], &s.slots[to]
	if src.state != slotOccupied || dst.state != slotTombstone {
		panic(fmt.Sprintf("move: %d(%s) -> %d(%s)", from, src.state, to, dst.state))
	}
	*dst = *src
	*src = Slot[K, V]{state: slotTombstone}
}

// reset empties every slot.
func (s *store[K, V]) reset() {
	clear(s.slots)
	s.keyCount = 0
	s.usedBuckets = 0
}
