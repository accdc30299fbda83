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

// Option provides an interface to do work on a Table while it is being
// created.
type Option[K any] interface {
	apply(t *Table[K])
}

type versionBucketsOption[K any] struct {
	buckets int
}

func (op versionBucketsOption[K]) apply(t *Table[K]) {
	t.versions = makeVersionTable(op.buckets)
}

// WithVersionBuckets is an option to size the seqlock version-counter
// table, rounded up to a power of two. The table is fixed-size and
// independent of ma+mb: fewer buckets mean more slots aliasing each
// counter and more false-positive reader retries, in exchange for less
// memory. The default is 8192.
func WithVersionBuckets[K any](buckets int) Option[K] {
	return versionBucketsOption[K]{buckets}
}
