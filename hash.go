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
	"math"
	"reflect"

	"github.com/dolthub/maphash"
	"golang.org/x/exp/constraints"
)

// hashFn computes the hash of a key. Only the low 63 bits are used when
// deriving a slot index.
type hashFn[K comparable] func(key K) uint64

// defaultHasher returns a hash function for K backed by the same hash the Go
// runtime uses for map[K]V, seeded randomly per call.
func defaultHasher[K comparable]() hashFn[K] {
	return maphash.NewHasher[K]().Hash
}

// IntegerHash hashes an integer key to itself. It is useful when the slot a
// key lands in needs to be predictable, e.g. to construct collision chains.
// Negative keys are sign-extended and then have their sign bit masked off
// when the slot index is computed.
func IntegerHash[K constraints.Integer](key K) uint64 {
	return uint64(key)
}

// normalizeIndex strips the sign bit from h and places it in the domain
// [0, capacity).
func normalizeIndex(h uint64, capacity int) int {
	return int((h & math.MaxInt64) % uint64(capacity))
}

// nilChecker returns a function reporting whether a key of type K is nil, or
// nil if K cannot hold a nil value. Comparable kinds that can be nil are
// pointers, channels and interfaces.
func nilChecker[K comparable]() func(key K) bool {
	switch reflect.TypeFor[K]().Kind() {
	case reflect.Interface:
		return func(key K) bool {
			return any(key) == nil
		}
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return func(key K) bool {
			return reflect.ValueOf(&key).Elem().IsNil()
		}
	default:
		return nil
	}
}
