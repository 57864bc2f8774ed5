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

package batch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/vector"
)

// Batch is one unit of vectorized data moving through a pipeline. All
// vectors have the same length (the row count). A batch is owned by
// exactly one of producer, queue, consumer or free-list at a time.
type Batch struct {
	// reference count, default is 1
	Cnt int64
	// Attrs column name list
	Attrs []string
	// Vecs col data
	Vecs []*vector.Vector

	rowCount int
}

// EmptyBatch is a zero-row placeholder that must never be cleaned.
var EmptyBatch = &Batch{Cnt: 1}

func New(attrs []string) *Batch {
	return &Batch{
		Cnt:   1,
		Attrs: attrs,
		Vecs:  make([]*vector.Vector, len(attrs)),
	}
}

func NewWithSize(n int) *Batch {
	return &Batch{
		Cnt:  1,
		Vecs: make([]*vector.Vector, n),
	}
}

func (bat *Batch) RowCount() int {
	return bat.rowCount
}

func (bat *Batch) SetRowCount(n int) {
	bat.rowCount = n
}

func (bat *Batch) AddRowCount(n int) {
	bat.rowCount += n
}

func (bat *Batch) VectorCount() int {
	return len(bat.Vecs)
}

func (bat *Batch) SetVector(pos int32, vec *vector.Vector) {
	bat.Vecs[pos] = vec
}

func (bat *Batch) GetVector(pos int32) *vector.Vector {
	return bat.Vecs[pos]
}

func (bat *Batch) SetAttributes(attrs []string) {
	bat.Attrs = attrs
}

func (bat *Batch) IsEmpty() bool {
	return bat.rowCount == 0
}

func (bat *Batch) Size() int {
	var size int
	for _, vec := range bat.Vecs {
		if vec != nil {
			size += vec.Size()
		}
	}
	return size
}

// Swap exchanges the underlying column storage of two batches in O(1).
// No column data is copied.
func (bat *Batch) Swap(other *Batch) {
	bat.Attrs, other.Attrs = other.Attrs, bat.Attrs
	bat.Vecs, other.Vecs = other.Vecs, bat.Vecs
	bat.rowCount, other.rowCount = other.rowCount, bat.rowCount
}

// Clear resets the column storage of the first n materialized slots and
// drops the row count, keeping capacity allocated for reuse. Recycled
// batches therefore never expose stale rows.
func (bat *Batch) Clear(n int) {
	if n > len(bat.Vecs) {
		n = len(bat.Vecs)
	}
	for i := 0; i < n; i++ {
		if bat.Vecs[i] != nil {
			bat.Vecs[i].CleanOnlyData()
		}
	}
	bat.rowCount = 0
}

// CleanOnlyData clears every column, keeping capacity.
func (bat *Batch) CleanOnlyData() {
	bat.Clear(len(bat.Vecs))
}

// Clean drops one reference; the last reference frees all column memory.
func (bat *Batch) Clean(mp *mpool.MPool) {
	if bat == EmptyBatch {
		return
	}
	if atomic.LoadInt64(&bat.Cnt) == 0 {
		return
	}
	if atomic.AddInt64(&bat.Cnt, -1) > 0 {
		return
	}
	for _, vec := range bat.Vecs {
		if vec != nil {
			vec.Free(mp)
		}
	}
	bat.Attrs = nil
	bat.Vecs = nil
	bat.rowCount = 0
}

func (bat *Batch) AddCnt(cnt int) {
	atomic.AddInt64(&bat.Cnt, int64(cnt))
}

func (bat *Batch) GetCnt() int64 {
	return atomic.LoadInt64(&bat.Cnt)
}

// Append unions all rows of b into bat.
func (bat *Batch) Append(ctx context.Context, mp *mpool.MPool, b *Batch) (*Batch, error) {
	if bat == nil {
		return nil, moerr.NewInvalidArg(ctx, "batch", nil)
	}
	if len(bat.Vecs) != len(b.Vecs) {
		return nil, moerr.NewInternalError(ctx, "unexpected error happens in batch append")
	}
	for i := range bat.Vecs {
		for row := 0; row < b.rowCount; row++ {
			if err := bat.Vecs[i].UnionOne(b.Vecs[i], row, mp); err != nil {
				return bat, err
			}
		}
	}
	bat.rowCount += b.rowCount
	return bat, nil
}

func (bat *Batch) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rows(%d)\n", bat.rowCount)
	for i, vec := range bat.Vecs {
		fmt.Fprintf(&sb, "%d : %s\n", i, vec.String())
	}
	return sb.String()
}
