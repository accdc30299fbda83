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

// bitStore packs ma+mb logical slots, each exactly vcl bits wide, into a
// flat []uint64. Slot i occupies bit range [i*vcl, i*vcl+vcl) and may
// straddle at most one word boundary since vcl <= 64. The value sub-field
// of a slot is the high l bits; the low cl bits are the correction field.
//
// All word accesses go through sync/atomic. Readers race with guarded
// writers by design (the seqlock in othello.go detects the race after the
// fact), and the atomic loads/stores guarantee that a racing reader sees
// either the old or the new word, never a torn mix, with acquire/release
// ordering on weakly-ordered hardware.
type bitStore struct {
	words []uint64
	vcl   uint8 // l + cl, total slot width, <= 64
	l     uint8 // value sub-field width
	cl    uint8 // correction sub-field width

	vcMask uint64 // low vcl bits set
	vMask  uint64 // low l bits set
	cMask  uint64 // low cl bits set
}

// lowMask returns a mask of the low n bits, for n in [0, 64]. Go defines
// shifts by >= 64 to yield 0, so n == 0 and n == 64 both fall out of the
// single expression.
func lowMask(n uint8) uint64 {
	return ^uint64(0) >> (64 - uint64(n))
}

func makeBitStore(slots uint64, l, cl uint8) bitStore {
	vcl := l + cl
	return bitStore{
		words:  make([]uint64, wordsForSlots(slots, vcl)),
		vcl:    vcl,
		l:      l,
		cl:     cl,
		vcMask: lowMask(vcl),
		vMask:  lowMask(l),
		cMask:  lowMask(cl),
	}
}

// wordsForSlots returns the number of uint64 words needed to back the
// given number of vcl-bit slots.
func wordsForSlots(slots uint64, vcl uint8) uint64 {
	return (slots*uint64(vcl) + 63) / 64
}

// load extracts width bits starting at absolute bit offset bit. mask must
// be lowMask(width).
func (s *bitStore) load(bit uint64, width uint8, mask uint64) uint64 {
	word := bit >> 6
	off := bit & 63
	v := atomic.LoadUint64(&s.words[word]) >> off
	if off+uint64(width) > 64 {
		// The high remainder lives in the low bits of the next word.
		// off > 0 here, so the shift is < 64.
		v |= atomic.LoadUint64(&s.words[word+1]) << (64 - off)
	}
	return v & mask
}

// store inserts the low width bits of v at absolute bit offset bit,
// leaving every other bit of the touched words unchanged. mask must be
// lowMask(width). Concurrent stores to overlapping words require external
// serialization; the seqlock counters only protect readers.
func (s *bitStore) store(bit uint64, width uint8, mask uint64, v uint64) {
	v &= mask
	word := bit >> 6
	off := bit & 63
	w := atomic.LoadUint64(&s.words[word])
	w = w&^(mask<<off) | v<<off
	atomic.StoreUint64(&s.words[word], w)
	if left := off + uint64(width); left > 64 {
		left -= 64 // number of spilled bits in the next word
		w = atomic.LoadUint64(&s.words[word+1])
		w = w&^lowMask(uint8(left)) | v>>(uint64(width)-left)
		atomic.StoreUint64(&s.words[word+1], w)
	}
}

// get returns the full vcl-bit slot i.
func (s *bitStore) get(i uint32) uint64 {
	if s.vcl == 0 {
		return 0
	}
	return s.load(uint64(i)*uint64(s.vcl), s.vcl, s.vcMask)
}

// set overwrites the full vcl-bit slot i with the low vcl bits of v.
func (s *bitStore) set(i uint32, v uint64) {
	if s.vcl == 0 {
		return
	}
	s.store(uint64(i)*uint64(s.vcl), s.vcl, s.vcMask, v)
}

// valueGet returns the l-bit value sub-field of slot i, excluding the low
// cl correction bits.
func (s *bitStore) valueGet(i uint32) uint64 {
	if s.l == 0 {
		return 0
	}
	return s.load(uint64(i)*uint64(s.vcl)+uint64(s.cl), s.l, s.vMask)
}

// valueSet overwrites the l-bit value sub-field of slot i, leaving the
// correction bits untouched.
func (s *bitStore) valueSet(i uint32, v uint64) {
	if s.l == 0 {
		return
	}
	s.store(uint64(i)*uint64(s.vcl)+uint64(s.cl), s.l, s.vMask, v)
}
