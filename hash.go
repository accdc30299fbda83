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

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/spaolacci/murmur3"
)

// Hasher64 is the shape of the primary hash function a control-plane
// snapshot carries. The 64-bit output is split into two 32-bit halves,
// one per array. The function must be deterministic for the lifetime of
// the snapshot; the control plane picks its parameters (seeds).
type Hasher64[K any] func(K) uint64

// Hasher32 is the shape of the auxiliary digest hash carried by a
// snapshot. The data plane stores it for the control plane's benefit and
// does not consult it on the lookup path.
type Hasher32[K any] func(K) uint32

// SipHasher64 returns a keyed Hasher64 over byte-slice keys, backed by
// SipHash-2-4 with the 128-bit key (k0, k1).
func SipHasher64(k0, k1 uint64) Hasher64[[]byte] {
	return func(key []byte) uint64 {
		return siphash.Hash(k0, k1, key)
	}
}

// SipStringHasher64 is SipHasher64 for string keys.
func SipStringHasher64(k0, k1 uint64) Hasher64[string] {
	return func(key string) uint64 {
		return siphash.Hash(k0, k1, []byte(key))
	}
}

// XXStringHasher64 returns an unkeyed Hasher64 over string keys, backed
// by xxHash. Suitable when the control plane derives independence from
// array sizing rather than from a secret seed.
func XXStringHasher64() Hasher64[string] {
	return xxhash.Sum64String
}

// MurmurHasher32 returns a seeded Hasher32 over byte-slice keys, backed
// by Murmur3. The usual choice for a snapshot's auxiliary digest hash.
func MurmurHasher32(seed uint32) Hasher32[[]byte] {
	return func(key []byte) uint32 {
		return murmur3.Sum32WithSeed(key, seed)
	}
}

// MurmurStringHasher32 is MurmurHasher32 for string keys.
func MurmurStringHasher32(seed uint32) Hasher32[string] {
	return func(key string) uint32 {
		return murmur3.Sum32WithSeed([]byte(key), seed)
	}
}

// reduceRange maps x, uniform in [0, 2^32), to [0, n) using Lemire's
// multiplicative alternative to modulo reduction:
// https://lemire.me/blog/2016/06/27/a-fast-alternative-to-the-modulo-reduction/
// Instead of x % n, use (x * n) >> 32. For n == 0 the result is 0, which
// is the defined behavior for a degenerate empty array.
func reduceRange(x, n uint32) uint32 {
	return uint32(uint64(x) * uint64(n) >> 32)
}

// indices derives the two slot indices for key: one in array A, in
// [0, ma), and one in array B, offset into [ma, ma+mb). Pure; computed
// once per lookup and never re-derived inside the retry loop.
func (t *Table[K]) indices(key K) (ia, ib uint32) {
	h := t.hab(key)
	ib = reduceRange(uint32(h>>32), t.mb) + t.ma
	ia = reduceRange(uint32(h), t.ma)
	return ia, ib
}
