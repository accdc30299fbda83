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

// The patch engine applies the control plane's incremental repairs:
// single-slot corrections and connected-component XOR propagation. Each
// mutation is bracketed by version-counter bumps so concurrent readers
// detect and retry around it. Writes are not serialized here: the
// control plane must not run two patches whose slots alias the same
// version bucket at the same time.

// Fill overwrites the value field of slot with the low L bits of value,
// leaving the correction bits untouched.
func (t *Table[K]) Fill(slot uint32, value uint64) {
	t.versions.bump(slot)
	t.store.valueSet(slot, value)
	t.versions.bump(slot)
}

// Fix XORs delta into the value field of slot.
func (t *Table[K]) Fix(slot uint32, delta uint64) {
	v := delta ^ t.store.valueGet(slot)
	t.versions.bump(slot)
	t.store.valueSet(slot, v)
	t.versions.bump(slot)
}

// Propagate applies Fix(slot, delta) to every slot in slots. The control
// plane calls this when admitting a key or resolving a conflict forces a
// whole connected component of the assignment graph (a half tree rooted
// at an array-A node) to absorb one XOR correction.
//
// The caller guarantees slots is exactly the affected component.
// Propagation is not atomic across the set: each slot's update is
// individually guarded, and readers may observe a partially-propagated
// state mid-call.
func (t *Table[K]) Propagate(slots []uint32, delta uint64) {
	for _, s := range slots {
		t.Fix(s, delta)
	}
}
