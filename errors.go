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

import "errors"

var (
	// ErrInvalidArgument is returned when a Table is constructed with a
	// non-positive capacity or a load factor that is not a positive finite
	// number, and when an operation is passed a nil key. The table is left
	// unmodified.
	ErrInvalidArgument = errors.New("openaddr: invalid argument")

	// ErrConcurrentMutation is reported by an Iterator (and by All) when the
	// table was structurally modified after iteration began. Detection is
	// best-effort: it compares a modification counter and does not prevent
	// the interference.
	ErrConcurrentMutation = errors.New("openaddr: concurrent mutation during iteration")
)
