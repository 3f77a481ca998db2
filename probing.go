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
	"math/bits"
)

// Probing determines the order in which a Table examines slots for a key and
// the constraints the table capacity must satisfy for that order to be
// complete.
//
// A probe walk for a key with hash h visits the slots
//
//	i(0) = h mod capacity
//	i(x) = (i(0) + Probe(x)) mod capacity,  x = 1, 2, ...
//
// Setup is called once per walk, before the first call to Probe, with the
// key's hash and the current capacity. Strategies that derive per-key state
// (such as a secondary hash) do so in Setup, which makes them stateful: a
// Probing value must not be shared between tables.
type Probing interface {
	// Setup prepares a walk for the key with the given hash.
	Setup(hash uint64, capacity int)
	// Probe returns the non-negative offset added to the initial index on
	// attempt x, where x starts at 1.
	Probe(x int) int
	// Adjust returns the smallest capacity >= capacity for which the probe
	// sequence visits every slot.
	Adjust(capacity int) int
	// Grow returns the candidate capacity for the next resize. The Table
	// passes the result through Adjust.
	Grow(capacity int) int
}

// Quadratic probes using the triangular numbers (x^2 + x)/2. The sequence
// visits every slot exactly once in the first capacity attempts if the
// capacity is a power of two, since (x^2+x)/2 is a bijection in Z/(2^m). See
// https://en.wikipedia.org/wiki/Quadratic_probing.
type Quadratic struct{}

var _ Probing = Quadratic{}

// Setup is a no-op: the quadratic sequence does not depend on the key.
func (Quadratic) Setup(uint64, int) {}

// Probe implements Probing.
func (Quadratic) Probe(x int) int {
	return (x*x + x) >> 1
}

// Adjust rounds capacity up to a power of two.
func (Quadratic) Adjust(capacity int) int {
	return nextPowerOfTwo(capacity)
}

// Grow returns the smallest power of two that is at least twice capacity.
func (Quadratic) Grow(capacity int) int {
	return nextPowerOfTwo(2 * capacity)
}

// LinearStep is the stride used by Linear probing.
const LinearStep = 17

// Linear probes at a fixed stride of LinearStep slots. The sequence covers the
// whole table when the stride and the capacity are coprime.
type Linear struct{}

var _ Probing = Linear{}

// Setup is a no-op.
func (Linear) Setup(uint64, int) {}

// Probe implements Probing.
func (Linear) Probe(x int) int {
	return LinearStep * x
}

// Adjust increments capacity until it is coprime with LinearStep.
func (Linear) Adjust(capacity int) int {
	for gcd(LinearStep, capacity) != 1 {
		capacity++
	}
	return capacity
}

// Grow implements Probing.
func (Linear) Grow(capacity int) int {
	return 2*capacity + 1
}

// DoubleHashing probes at a per-key stride derived from a secondary hash of
// the key. The capacity is kept prime so that every stride in [1, capacity)
// generates the whole table.
type DoubleHashing struct {
	step int
}

var _ Probing = (*DoubleHashing)(nil)

// Setup derives the stride for the key from a remix of its hash. The stride
// is never zero.
func (d *DoubleHashing) Setup(hash uint64, capacity int) {
	if capacity <= 1 {
		d.step = 1
		return
	}
	d.step = 1 + int(mix64(hash)%uint64(capacity-1))
}

// Probe implements Probing.
func (d *DoubleHashing) Probe(x int) int {
	return x * d.step
}

// Adjust rounds capacity up to a prime.
func (d *DoubleHashing) Adjust(capacity int) int {
	return nextPrime(capacity)
}

// Grow implements Probing.
func (d *DoubleHashing) Grow(capacity int) int {
	return 2*capacity + 1
}

// probeSeq maintains the state for a probe walk over a table of the given
// capacity. Unlike a walk that stops at the first empty slot only, the
// sequence also reports when it has made capacity attempts: a strategy whose
// precondition does not hold at the current capacity (e.g. Quadratic at a
// non power of two) may revisit slots forever otherwise.
type probeSeq struct {
	probing  Probing
	capacity int
	start    int
	offset   int
	x        int
}

func makeProbeSeq(p Probing, hash uint64, capacity int) probeSeq {
	p.Setup(hash, capacity)
	start := normalizeIndex(hash, capacity)
	return probeSeq{
		probing:  p,
		capacity: capacity,
		start:    start,
		offset:   start,
	}
}

func (s probeSeq) next() probeSeq {
	s.x++
	s.offset = int((uint(s.start) + uint(s.probing.Probe(s.x))) % uint(s.capacity))
	return s
}

// done returns true once every attempt the walk is allowed has been made.
func (s probeSeq) done() bool {
	return s.x >= s.capacity
}

func (s probeSeq) String() string {
	return fmt.Sprintf("capacity=%d start=%d offset=%d x=%d", s.capacity, s.start, s.offset, s.x)
}

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// gcd returns the greatest common divisor of a and b.
func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}

// nextPrime returns the smallest prime >= n.
func nextPrime(n int) int {
	if n <= 2 {
		return 2
	}
	if n%2 == 0 {
		n++
	}
	for !isPrime(n) {
		n += 2
	}
	return n
}

// mix64 is the splitmix64 finalizer. DoubleHashing uses it to derive a stride
// that is independent of the bits selecting the initial slot.
func mix64(h uint64) uint64 {
	h ^= h >> 30
	h *= 0xbf58476d1ce4e5b9
	h ^= h >> 27
	h *= 0x94d049bb133111eb
	h ^= h >> 31
	return h
}
