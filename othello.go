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

// Package othello is a Go implementation of the l-Othello data plane, a
// compact concurrently-readable key-classification index. See:
//
//	https://arxiv.org/abs/1608.05699
//
// # Othello hashing
//
// An Othello structure classifies keys into 2^L classes using two hash
// probes and an XOR. Two flat arrays A (ma slots) and B (mb slots) are
// packed into a single contiguous bit store, each slot L+CL bits wide: L
// value bits plus CL low-order "correction" bits reserved for the control
// plane's digest bookkeeping. For every key k known to the control plane,
//
//	A[hA(k)] XOR B[hB(k)] == value(k)<<CL | correction(k)
//
// where hA and hB are the two 32-bit halves of one 64-bit hash, each
// mapped into its array by Lemire multiplicative reduction. Lookups cost
// two slot reads and an XOR, with no per-key pointer chasing, and the
// footprint is (ma+mb)*(L+CL) bits, close to the information-theoretic
// minimum; the structure stores no keys at all.
//
// The XOR invariant is established entirely by an external control plane
// that solves the bipartite assignment off the critical path and hands
// the data plane an opaque snapshot (array sizes, hash functions, packed
// memory image). This package only imports such snapshots, serves
// lookups against them, and applies localized slot patches when the
// control plane repairs the assignment incrementally. It is not a
// general associative container: there is no insert, delete or
// iteration, and a lookup against a key the control plane never placed
// returns whatever the resident bits XOR to, with no failure indication.
//
// # Concurrency
//
// Readers run lock-free against concurrent patching via a seqlock: a
// fixed-size table of version counters, far coarser than ma+mb, each
// counter aliasing many slots. Writers bump a slot's counter before and
// after mutating it; readers snapshot both counters, read both slots,
// re-read the counters and retry if either was odd or changed. Readers
// never block writers and vice versa; a reader may retry unboundedly
// under sustained write contention. The counters detect change only —
// they are not locks — so writes themselves need external serialization
// (in practice the control plane issues all patches from one goroutine,
// or partitions ownership by counter bucket). Snapshot import is a
// stop-the-world replace and must not run concurrently with lookups.
package othello

import (
	"errors"
	"fmt"
)

// filterCorrectionBits is the correction width pinned by NewWithFilter,
// matching the filtered Othello variant's default.
const filterCorrectionBits = 6

// ErrKeyNotFound is returned by Lookup when the read protocol cannot
// report a value. Unreachable with the plain protocol; reserved for
// digest-based rejection in filtered deployments.
var ErrKeyNotFound = errors.New("othello: key not found")

// Table is the Othello data plane for keys of type K. Values are the low
// L bits of a uint64. A Table is created empty and populated by
// ImportSnapshot or ImportSource; lookups and patches are valid only
// after a successful import.
//
// L and CL are fixed for the lifetime of the Table. ma, mb and the hash
// functions change only on snapshot import.
type Table[K any] struct {
	l  uint8 // value bits per slot
	cl uint8 // correction bits per slot

	store    bitStore
	ma       uint32 // slots in array A, indices [0, ma)
	mb       uint32 // slots in array B, indices [ma, ma+mb)
	hab      Hasher64[K]
	hd       Hasher32[K]
	versions versionTable
}

// New returns an empty Table serving l-bit values with cl correction bits
// per slot. l+cl must not exceed 64.
func New[K any](l, cl uint8, opts ...Option[K]) (*Table[K], error) {
	if int(l)+int(cl) > 64 {
		return nil, fmt.Errorf("othello: value width %d + correction width %d exceeds 64 bits", l, cl)
	}
	t := &Table[K]{
		l:        l,
		cl:       cl,
		store:    makeBitStore(0, l, cl),
		versions: makeVersionTable(defaultVersionBuckets),
	}
	for _, op := range opts {
		op.apply(t)
	}
	return t, nil
}

// NewWithFilter is New with the correction width pinned to the filtered
// variant's default of 6 bits.
func NewWithFilter[K any](l uint8, opts ...Option[K]) (*Table[K], error) {
	return New[K](l, filterCorrectionBits, opts...)
}

// Snapshot is a pre-flattened control-plane assignment: array sizes, the
// two hash functions, and the packed memory image covering ma+mb slots of
// l+cl bits each.
type Snapshot[K any] struct {
	Ma  uint32
	Mb  uint32
	Hab Hasher64[K]
	Hd  Hasher32[K]
	Mem []uint64
}

// Source is a control plane that flattens its assignment on demand.
// PrepareDataPlane produces the packed image a Table can import.
type Source[K any] interface {
	PrepareDataPlane() (Snapshot[K], error)
}

// ImportSnapshot replaces the Table's arrays, sizes and hash functions
// wholesale with the snapshot's. The memory image is copied, not
// aliased. This is the only path that changes ma and mb.
//
// Import is a stop-the-world replace: the caller must ensure no lookup
// or patch runs concurrently with it.
func (t *Table[K]) ImportSnapshot(s Snapshot[K]) error {
	if s.Hab == nil {
		return errors.New("othello: snapshot carries no primary hash function")
	}
	slots := uint64(s.Ma) + uint64(s.Mb)
	if want := wordsForSlots(slots, t.l+t.cl); uint64(len(s.Mem)) != want {
		return fmt.Errorf("othello: snapshot image is %d words, need %d for ma=%d mb=%d width=%d",
			len(s.Mem), want, s.Ma, s.Mb, t.l+t.cl)
	}
	t.ma, t.mb = s.Ma, s.Mb
	t.hab, t.hd = s.Hab, s.Hd
	t.store = makeBitStore(slots, t.l, t.cl)
	copy(t.store.words, s.Mem)
	return nil
}

// ImportSource asks the control plane to flatten its assignment, then
// imports the result. Same caveats as ImportSnapshot.
func (t *Table[K]) ImportSource(src Source[K]) error {
	s, err := src.PrepareDataPlane()
	if err != nil {
		return fmt.Errorf("othello: preparing data plane image: %w", err)
	}
	return t.ImportSnapshot(s)
}

// Get returns the value the structure associates with key. ok reports
// only that the optimistic read protocol completed; it is not a
// membership test. A key the control plane never placed yields ok=true
// and a meaningless value.
//
// Get is safe to call from any number of goroutines concurrently with
// guarded writes. When CL > 0 a Get additionally bumps the correction
// counters of both touched slots and therefore counts as a writer under
// the caller's write-serialization discipline.
func (t *Table[K]) Get(key K) (value uint64, ok bool) {
	ia, ib := t.indices(key)
	for {
		va1, vb1 := t.versions.read(ia), t.versions.read(ib)
		if va1&1 != 0 || vb1&1 != 0 {
			// A write is in progress on an aliasing slot.
			continue
		}
		a := t.store.get(ia)
		b := t.store.get(ib)
		if t.versions.read(ia) != va1 || t.versions.read(ib) != vb1 {
			continue
		}
		value = (a ^ b) >> t.cl
		if t.cl != 0 {
			t.markCorrection(ia, a)
			t.markCorrection(ib, b)
		}
		return value, true
	}
}

// Lookup is the strict variant of Get: it returns ErrKeyNotFound instead
// of ok=false. Ordinary callers should prefer Get, since the plain
// protocol always completes; real membership rejection lives in the
// control plane's digest logic.
func (t *Table[K]) Lookup(key K) (uint64, error) {
	v, ok := t.Get(key)
	if !ok {
		return 0, ErrKeyNotFound
	}
	return v, nil
}

// markCorrection saturating-increments the correction sub-field of the
// slot value observed at i and persists the full slot through the guarded
// write path. Drift bookkeeping for the control plane; the increment
// stops at the all-ones correction value rather than wrapping into the
// value bits.
func (t *Table[K]) markCorrection(i uint32, slot uint64) {
	c := slot & t.store.cMask
	if c == t.store.cMask {
		return
	}
	t.setSlot(i, slot&^t.store.cMask|(c+1))
}

// setSlot writes a full slot under version-guard brackets.
func (t *Table[K]) setSlot(i uint32, v uint64) {
	t.versions.bump(i)
	t.store.set(i, v)
	t.versions.bump(i)
}

// MemoryCost returns the size in bytes of the packed slot store,
// excluding the version table and hash function state. Intended for
// capacity accounting by the control plane.
func (t *Table[K]) MemoryCost() uint64 {
	return uint64(len(t.store.words)) * 8
}
