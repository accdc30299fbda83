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

package othello

import "sync/atomic"

// defaultVersionBuckets is the default size of the version-counter table.
// Power of two, fixed and independent of ma+mb: many slots alias onto one
// counter, trading false-positive reader retries for bounded memory.
const defaultVersionBuckets = 8192

// versionTable implements the seqlock counters. A writer brackets every
// slot mutation with bump() before and after, so an odd counter means a
// write is in progress for some slot aliasing to that bucket. Readers
// compare the counter before and after their slot reads and retry on any
// change.
//
// The counter is a change detector for readers, not an exclusive lock:
// two writers bumping the same bucket concurrently is a race the protocol
// does not resolve. Callers must serialize writes, or partition write
// ownership by bucket.
//
// Counters are uint32 rather than the byte-wide counters one might
// expect: sync/atomic has no 8-bit operations, and parity plus
// wraparound semantics are unchanged. The table is owned by its Table
// instance so independent instances never share counters.
type versionTable struct {
	counters []uint32
	mask     uint32
}

func makeVersionTable(buckets int) versionTable {
	// Round up to a power of two so aliasing is a mask, not a modulo.
	n := 1
	for n < buckets {
		n <<= 1
	}
	return versionTable{
		counters: make([]uint32, n),
		mask:     uint32(n - 1),
	}
}

// read returns the current counter for slot, with acquire ordering.
func (v *versionTable) read(slot uint32) uint32 {
	return atomic.LoadUint32(&v.counters[slot&v.mask])
}

// bump increments the counter for slot, with release ordering. Called
// once before and once after each guarded mutation.
func (v *versionTable) bump(slot uint32) {
	atomic.AddUint32(&v.counters[slot&v.mask], 1)
}
