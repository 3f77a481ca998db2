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
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func genSeq(p Probing, hash uint64, capacity int) []int {
	var vals []int
	for seq := makeProbeSeq(p, hash, capacity); !seq.done(); seq = seq.next() {
		vals = append(vals, seq.offset)
	}
	return vals
}

func TestProbeSeq(t *testing.T) {
	genSlots := func(n int) []int {
		var vals []int
		for i := 0; i < n; i++ {
			vals = append(vals, i)
		}
		return vals
	}

	// The Abseil probeSeq test cases.
	expected := []int{0, 1, 3, 6, 10, 15, 5, 12, 4, 13, 7, 2, 14, 11, 9, 8}
	require.Equal(t, expected, genSeq(Quadratic{}, 0, 16))
	require.Equal(t, expected, genSeq(Quadratic{}, 16, 16))

	// Verify that we touch all of the slots no matter what our start offset
	// is.
	for i := uint64(0); i < 16; i++ {
		vals := genSeq(Quadratic{}, i, 16)
		require.Equal(t, 16, len(vals))
		sort.Ints(vals)
		require.Equal(t, genSlots(16), vals)
	}

	// At a capacity that is not a power of two the quadratic sequence
	// revisits slots; the walk still ends after capacity attempts.
	require.Equal(t, []int{5, 6, 1, 4, 1, 6, 5}, genSeq(Quadratic{}, 5, 7))
}

func TestProbeSeqCoverage(t *testing.T) {
	for _, s := range strategies {
		t.Run(s.name, func(t *testing.T) {
			p := s.new()
			for n := 1; n < 300; n += 7 {
				capacity := p.Adjust(n)
				require.GreaterOrEqual(t, capacity, n)
				require.Equal(t, capacity, p.Adjust(capacity), "Adjust is not idempotent")
				for i := 0; i < 8; i++ {
					h := rand.Uint64()
					seen := make(map[int]bool)
					for _, v := range genSeq(p, h, capacity) {
						seen[v] = true
					}
					require.Equal(t, capacity, len(seen),
						fmt.Sprintf("capacity=%d hash=%016x", capacity, h))
				}
			}
		})
	}
}

func TestAdjustAndGrow(t *testing.T) {
	testCases := []struct {
		p        Probing
		capacity int
		adjust   int
		grow     int
	}{
		{Quadratic{}, 1, 1, 2},
		{Quadratic{}, 7, 8, 16},
		{Quadratic{}, 8, 8, 16},
		{Quadratic{}, 9, 16, 32},
		{Linear{}, 7, 7, 15},
		{Linear{}, 17, 18, 35},
		{Linear{}, 34, 35, 69},
		{&DoubleHashing{}, 7, 7, 15},
		{&DoubleHashing{}, 8, 11, 17},
		{&DoubleHashing{}, 15, 17, 31},
	}
	for _, c := range testCases {
		t.Run(fmt.Sprintf("%T/%d", c.p, c.capacity), func(t *testing.T) {
			require.Equal(t, c.adjust, c.p.Adjust(c.capacity))
			require.Equal(t, c.grow, c.p.Grow(c.capacity))
		})
	}
}

func TestProbe(t *testing.T) {
	var q Quadratic
	var l Linear
	for x, expected := range []int{0, 1, 3, 6, 10, 15, 21} {
		require.Equal(t, expected, q.Probe(x))
		require.Equal(t, LinearStep*x, l.Probe(x))
	}

	var d DoubleHashing
	for _, capacity := range []int{2, 7, 11, 101} {
		for i := 0; i < 100; i++ {
			d.Setup(rand.Uint64(), capacity)
			step := d.Probe(1)
			require.GreaterOrEqual(t, step, 1)
			require.Less(t, step, capacity)
			require.Equal(t, 3*step, d.Probe(3))
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	testCases := []struct{ n, expected int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {7, 8}, {8, 8}, {9, 16}, {1000, 1024},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, nextPowerOfTwo(c.n), "n=%d", c.n)
	}
}

func TestGCD(t *testing.T) {
	testCases := []struct{ a, b, expected int }{
		{17, 7, 1}, {17, 34, 17}, {12, 18, 6}, {5, 0, 5}, {0, 5, 5},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, gcd(c.a, c.b), "gcd(%d, %d)", c.a, c.b)
	}
}

func TestNextPrime(t *testing.T) {
	testCases := []struct{ n, expected int }{
		{0, 2}, {2, 2}, {3, 3}, {4, 5}, {8, 11}, {14, 17}, {90, 97}, {97, 97},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, nextPrime(c.n), "n=%d", c.n)
	}
}
