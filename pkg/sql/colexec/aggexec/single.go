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

package aggexec

import (
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
)

// countExec counts non-null rows. Its partial state is the count
// itself, so Merge sums.
type countExec struct {
	inputType types.Type
	vals      []int64
}

func (e *countExec) Grows(n int) {
	e.vals = append(e.vals, make([]int64, n)...)
}

func (e *countExec) Fill(group int, vec *vector.Vector, row int) {
	if vec.GetNulls().Contains(uint64(row)) {
		return
	}
	e.vals[group]++
}

func (e *countExec) Merge(group int, vec *vector.Vector, row int) {
	if vec.GetNulls().Contains(uint64(row)) {
		return
	}
	e.vals[group] += vector.MustFixedCol[int64](vec)[row]
}

func (e *countExec) Flush(vec *vector.Vector, start, end int, mp *mpool.MPool) error {
	for i := start; i < end; i++ {
		if err := vector.AppendFixed(vec, e.vals[i], false, mp); err != nil {
			return err
		}
	}
	return nil
}

func (e *countExec) ResultType() types.Type {
	return types.New(types.T_int64)
}

func (e *countExec) Size() int {
	return len(e.vals)
}

func (e *countExec) Free() {
	e.vals = nil
}

type number interface {
	~int64 | ~float64
}

// sumExec sums non-null rows; a group with no visible row flushes null.
type sumExec[T number] struct {
	typ   types.Type
	vals  []T
	empty []bool
}

func (e *sumExec[T]) Grows(n int) {
	e.vals = append(e.vals, make([]T, n)...)
	for i := 0; i < n; i++ {
		e.empty = append(e.empty, true)
	}
}

func (e *sumExec[T]) Fill(group int, vec *vector.Vector, row int) {
	if vec.GetNulls().Contains(uint64(row)) {
		return
	}
	e.vals[group] += vector.MustFixedCol[T](vec)[row]
	e.empty[group] = false
}

func (e *sumExec[T]) Merge(group int, vec *vector.Vector, row int) {
	e.Fill(group, vec, row)
}

func (e *sumExec[T]) Flush(vec *vector.Vector, start, end int, mp *mpool.MPool) error {
	for i := start; i < end; i++ {
		if err := vector.AppendFixed(vec, e.vals[i], e.empty[i], mp); err != nil {
			return err
		}
	}
	return nil
}

func (e *sumExec[T]) ResultType() types.Type {
	return e.typ
}

func (e *sumExec[T]) Size() int {
	return len(e.vals)
}

func (e *sumExec[T]) Free() {
	e.vals, e.empty = nil, nil
}

// extremeExec keeps the minimum or maximum of non-null rows.
type extremeExec[T number] struct {
	typ     types.Type
	takeMin bool
	vals    []T
	empty   []bool
}

func (e *extremeExec[T]) Grows(n int) {
	e.vals = append(e.vals, make([]T, n)...)
	for i := 0; i < n; i++ {
		e.empty = append(e.empty, true)
	}
}

func (e *extremeExec[T]) Fill(group int, vec *vector.Vector, row int) {
	if vec.GetNulls().Contains(uint64(row)) {
		return
	}
	v := vector.MustFixedCol[T](vec)[row]
	if e.empty[group] {
		e.vals[group] = v
		e.empty[group] = false
		return
	}
	if e.takeMin {
		if v < e.vals[group] {
			e.vals[group] = v
		}
	} else {
		if v > e.vals[group] {
			e.vals[group] = v
		}
	}
}

func (e *extremeExec[T]) Merge(group int, vec *vector.Vector, row int) {
	e.Fill(group, vec, row)
}

func (e *extremeExec[T]) Flush(vec *vector.Vector, start, end int, mp *mpool.MPool) error {
	for i := start; i < end; i++ {
		if err := vector.AppendFixed(vec, e.vals[i], e.empty[i], mp); err != nil {
			return err
		}
	}
	return nil
}

func (e *extremeExec[T]) ResultType() types.Type {
	return e.typ
}

func (e *extremeExec[T]) Size() int {
	return len(e.vals)
}

func (e *extremeExec[T]) Free() {
	e.vals, e.empty = nil, nil
}
