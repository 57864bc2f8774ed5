// Copyright 2023 JWXFD2023
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nulls tracks the null rows of a vector as a word bitmap.
package nulls

// Nulls is a dense bitmap of null positions. The zero value is an empty
// bitmap ready for use.
type Nulls struct {
	np  []uint64
	cnt int
}

func NewWithSize(n int) *Nulls {
	return &Nulls{np: make([]uint64, (n+63)/64)}
}

func (nsp *Nulls) grow(row int) {
	want := row/64 + 1
	if want > len(nsp.np) {
		np := make([]uint64, want)
		copy(np, nsp.np)
		nsp.np = np
	}
}

func (nsp *Nulls) Add(rows ...uint64) {
	for _, row := range rows {
		r := int(row)
		nsp.grow(r)
		w := &nsp.np[r/64]
		mask := uint64(1) << (r % 64)
		if *w&mask == 0 {
			*w |= mask
			nsp.cnt++
		}
	}
}

func (nsp *Nulls) Contains(row uint64) bool {
	if nsp == nil {
		return false
	}
	r := int(row)
	if r/64 >= len(nsp.np) {
		return false
	}
	return nsp.np[r/64]&(uint64(1)<<(r%64)) != 0
}

func (nsp *Nulls) Count() int {
	if nsp == nil {
		return 0
	}
	return nsp.cnt
}

func (nsp *Nulls) Any() bool {
	return nsp.Count() > 0
}

// Reset clears the bitmap keeping its storage for reuse.
func (nsp *Nulls) Reset() {
	for i := range nsp.np {
		nsp.np[i] = 0
	}
	nsp.cnt = 0
}

// Or merges other into nsp, offsetting other's rows by off.
func (nsp *Nulls) Or(other *Nulls, off int, length int) {
	if other == nil || other.cnt == 0 {
		return
	}
	for i := 0; i < length; i++ {
		if other.Contains(uint64(i)) {
			nsp.Add(uint64(off + i))
		}
	}
}
