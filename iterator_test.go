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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterOrder(t *testing.T) {
	m := newTable[int, int](t, 16, DefaultLoadFactor, WithHash[int, int](IntegerHash[int]))
	for _, k := range []int{9, 3, 14, 0, 7} {
		mustPut(t, m, k, k*k)
	}

	var keys, values []int
	it := m.Iter()
	for it.Next() {
		keys = append(keys, it.Key())
		values = append(values, it.Value())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []int{0, 3, 7, 9, 14}, keys)
	require.Equal(t, []int{0, 9, 49, 81, 196}, values)
	require.Equal(t, m.Keys(), keys)
	require.Equal(t, m.Values(), values)

	// An exhausted iterator stays exhausted.
	require.False(t, it.Next())
	require.NoError(t, it.Err())
	require.Zero(t, it.Key())
}

func TestIterSkipsTombstones(t *testing.T) {
	m := newTable[int, int](t, 16, DefaultLoadFactor, WithHash[int, int](IntegerHash[int]))
	for k := 0; k < 8; k++ {
		mustPut(t, m, k, k)
	}
	for k := 0; k < 8; k += 3 {
		mustRemove(t, m, k)
	}

	var keys []int
	require.NoError(t, m.All(func(k, v int) bool {
		keys = append(keys, k)
		return true
	}))
	require.Equal(t, []int{1, 2, 4, 5, 7}, keys)
}

func TestIterEmpty(t *testing.T) {
	m := newTable[string, int](t, DefaultCapacity, DefaultLoadFactor)
	it := m.Iter()
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIterConcurrentMutation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(t *testing.T, m *Table[int, int])
	}{
		{"insert", func(t *testing.T, m *Table[int, int]) { mustPut(t, m, 100, 100) }},
		{"update", func(t *testing.T, m *Table[int, int]) { mustPut(t, m, 1, 100) }},
		{"remove", func(t *testing.T, m *Table[int, int]) { mustRemove(t, m, 1) }},
		{"clear", func(t *testing.T, m *Table[int, int]) { m.Clear() }},
	}
	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			m := newTable[int, int](t, DefaultCapacity, DefaultLoadFactor)
			for i := 0; i < 3; i++ {
				mustPut(t, m, i, i)
			}

			it := m.Iter()
			require.True(t, it.Next())
			c.mutate(t, m)
			require.False(t, it.Next())
			require.ErrorIs(t, it.Err(), ErrConcurrentMutation)

			// The failure is sticky.
			require.False(t, it.Next())
			require.ErrorIs(t, it.Err(), ErrConcurrentMutation)

			// A new iterator validates against the current state.
			it = m.Iter()
			for it.Next() {
			}
			require.NoError(t, it.Err())
		})
	}
}

func TestIterMutationBeforeFirstNext(t *testing.T) {
	m := newTable[int, int](t, DefaultCapacity, DefaultLoadFactor)
	it := m.Iter()
	mustPut(t, m, 1, 1)
	require.False(t, it.Next())
	require.ErrorIs(t, it.Err(), ErrConcurrentMutation)
}

func TestIterMissedRemoveOfAbsentKey(t *testing.T) {
	// Removing an absent key does not modify the table.
	m := newTable[int, int](t, DefaultCapacity, DefaultLoadFactor)
	mustPut(t, m, 1, 1)
	it := m.Iter()
	mustRemove(t, m, 2)
	require.True(t, it.Next())
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIterLookupIsNotMutation(t *testing.T) {
	m := newTable[int, int](t, 7, DefaultLoadFactor, WithHash[int, int](IntegerHash[int]))
	mustPut(t, m, 5, 5)
	mustPut(t, m, 12, 12)
	mustRemove(t, m, 5)

	it := m.Iter()
	// Relocates 12 from slot 6 to slot 5.
	v, ok := mustGet(t, m, 12)
	require.True(t, ok)
	require.EqualValues(t, 12, v)
	ok, err := m.Contains(12)
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, it.Next())
	require.EqualValues(t, 12, it.Key())
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIterRelocationAheadRepeatsEntry(t *testing.T) {
	// Quadratic probing from slot 5 at capacity 7 visits 5, 6, 1.
	m := newTable[int, int](t, 7, DefaultLoadFactor, WithHash[int, int](IntegerHash[int]))
	for _, k := range []int{5, 12, 19} {
		mustPut(t, m, k, k)
	}
	require.Equal(t, []int{5, 6, 1}, []int{m.slotOf(5), m.slotOf(12), m.slotOf(19)})
	mustRemove(t, m, 5)

	var keys []int
	it := m.Iter()
	for it.Next() {
		keys = append(keys, it.Key())
		if it.Key() == 19 && len(keys) == 1 {
			// Moves 19 from slot 1 to the tombstone in slot 5, which the
			// iterator has not reached yet.
			_, ok := mustGet(t, m, 19)
			require.True(t, ok)
			require.Equal(t, 5, m.slotOf(19))
		}
	}
	require.NoError(t, it.Err())
	require.Equal(t, []int{19, 19, 12}, keys)
}

func TestAllMutate(t *testing.T) {
	m := newTable[int, int](t, DefaultCapacity, DefaultLoadFactor)
	for i := 0; i < 100; i++ {
		mustPut(t, m, i, i)
	}

	var n int
	err := m.All(func(k, v int) bool {
		n++
		if n == 10 {
			mustPut(t, m, -k, v)
		}
		return true
	})
	require.ErrorIs(t, err, ErrConcurrentMutation)
	require.EqualValues(t, 10, n)
}

func TestAllStop(t *testing.T) {
	m := newTable[int, int](t, DefaultCapacity, DefaultLoadFactor)
	for i := 0; i < 100; i++ {
		mustPut(t, m, i, i)
	}

	var n int
	require.NoError(t, m.All(func(k, v int) bool {
		n++
		return n < 5
	}))
	require.EqualValues(t, 5, n)
}
