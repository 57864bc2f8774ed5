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

package vector

import (
	"context"
	"fmt"
	"strings"
	"unsafe"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/nulls"
	"github.com/JWXFD2023/doris/pkg/container/types"
)

// Vector represents a column. Fixed-length elements live in data, which
// is mpool-backed; varlen elements keep their bytes in the mpool-backed
// area with offsets on the Go heap.
type Vector struct {
	typ types.Type
	nsp *nulls.Nulls

	// fixed-length storage
	data []byte

	// varlen storage
	area []byte
	voff []uint32
	vlen []uint32

	length   int
	capacity int
}

func NewVec(typ types.Type) *Vector {
	return &Vector{
		typ: typ,
		nsp: &nulls.Nulls{},
	}
}

func (v *Vector) GetType() *types.Type {
	return &v.typ
}

func (v *Vector) GetNulls() *nulls.Nulls {
	return v.nsp
}

func (v *Vector) Length() int {
	return v.length
}

func (v *Vector) SetLength(n int) {
	v.length = n
}

func (v *Vector) Capacity() int {
	if v.typ.IsVarlen() {
		return cap(v.voff)
	}
	return v.capacity
}

// Size reports the bytes held for memory accounting.
func (v *Vector) Size() int {
	return len(v.data) + len(v.area)
}

// PreExtend guarantees room for at least rows elements without another
// allocation.
func (v *Vector) PreExtend(rows int, mp *mpool.MPool) error {
	if v.typ.IsVarlen() {
		if cap(v.voff) < rows {
			voff := make([]uint32, len(v.voff), rows)
			vlen := make([]uint32, len(v.vlen), rows)
			copy(voff, v.voff)
			copy(vlen, v.vlen)
			v.voff, v.vlen = voff, vlen
		}
		return nil
	}
	sz := v.typ.TypeSize()
	if v.capacity >= rows || sz == 0 {
		return nil
	}
	data, err := mp.Grow(v.data[:len(v.data)], rows*sz)
	if err != nil {
		return err
	}
	v.data = data[:rows*sz]
	v.capacity = rows
	return nil
}

// AppendFixed appends one fixed-length element. T must match the
// vector's type tag; this is not checked on the hot path.
func AppendFixed[T any](v *Vector, val T, isNull bool, mp *mpool.MPool) error {
	if v.typ.IsVarlen() {
		return moerr.NewInternalError(context.TODO(), "append fixed to varlen vector %s", v.typ.String())
	}
	if v.length == v.capacity {
		grow := v.capacity * 2
		if grow < 16 {
			grow = 16
		}
		if err := v.PreExtend(grow, mp); err != nil {
			return err
		}
	}
	if isNull {
		v.nsp.Add(uint64(v.length))
	} else {
		col := unsafe.Slice((*T)(unsafe.Pointer(&v.data[0])), v.capacity)
		col[v.length] = val
	}
	v.length++
	return nil
}

// AppendBytes appends one varlen element.
func AppendBytes(v *Vector, val []byte, isNull bool, mp *mpool.MPool) error {
	if !v.typ.IsVarlen() {
		return moerr.NewInternalError(context.TODO(), "append bytes to fixed vector %s", v.typ.String())
	}
	if isNull {
		v.nsp.Add(uint64(v.length))
		v.voff = append(v.voff, uint32(len(v.area)))
		v.vlen = append(v.vlen, 0)
		v.length++
		return nil
	}
	need := len(v.area) + len(val)
	if need > cap(v.area) {
		grow := 2 * need
		if grow < 64 {
			grow = 64
		}
		area, err := mp.Grow(v.area[:len(v.area)], grow)
		if err != nil {
			return err
		}
		v.area = area[:len(v.area)]
	}
	v.voff = append(v.voff, uint32(len(v.area)))
	v.vlen = append(v.vlen, uint32(len(val)))
	v.area = append(v.area, val...)
	v.length++
	return nil
}

func AppendString(v *Vector, val string, isNull bool, mp *mpool.MPool) error {
	return AppendBytes(v, []byte(val), isNull, mp)
}

// MustFixedCol views the fixed-length storage as a typed slice of the
// vector's current length.
func MustFixedCol[T any](v *Vector) []T {
	if len(v.data) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&v.data[0])), v.capacity)[:v.length]
}

func (v *Vector) GetBytesAt(i int) []byte {
	return v.area[v.voff[i] : v.voff[i]+v.vlen[i]]
}

func (v *Vector) GetStringAt(i int) string {
	return string(v.GetBytesAt(i))
}

// CleanOnlyData resets the vector to zero rows while keeping capacity
// allocated, so recycled vectors never expose stale rows.
func (v *Vector) CleanOnlyData() {
	v.length = 0
	v.voff = v.voff[:0]
	v.vlen = v.vlen[:0]
	v.area = v.area[:0]
	v.nsp.Reset()
}

func (v *Vector) Free(mp *mpool.MPool) {
	if v.data != nil {
		mp.Free(v.data[:cap(v.data)])
		v.data = nil
	}
	if v.area != nil {
		mp.Free(v.area[:cap(v.area)])
		v.area = nil
	}
	v.voff = nil
	v.vlen = nil
	v.length = 0
	v.capacity = 0
	v.nsp = &nulls.Nulls{}
}

// UnionOne appends row i of w to v.
func (v *Vector) UnionOne(w *Vector, i int, mp *mpool.MPool) error {
	if w.nsp.Contains(uint64(i)) {
		if v.typ.IsVarlen() {
			return AppendBytes(v, nil, true, mp)
		}
		return appendNullFixed(v, mp)
	}
	switch v.typ.Oid {
	case types.T_bool:
		return AppendFixed(v, MustFixedCol[bool](w)[i], false, mp)
	case types.T_int32:
		return AppendFixed(v, MustFixedCol[int32](w)[i], false, mp)
	case types.T_int64:
		return AppendFixed(v, MustFixedCol[int64](w)[i], false, mp)
	case types.T_float64:
		return AppendFixed(v, MustFixedCol[float64](w)[i], false, mp)
	case types.T_varchar:
		return AppendBytes(v, w.GetBytesAt(i), false, mp)
	}
	return moerr.NewNotSupported(context.TODO(), "union on type %s", v.typ.String())
}

func appendNullFixed(v *Vector, mp *mpool.MPool) error {
	switch v.typ.Oid {
	case types.T_bool:
		return AppendFixed[bool](v, false, true, mp)
	case types.T_int32:
		return AppendFixed[int32](v, 0, true, mp)
	case types.T_int64:
		return AppendFixed[int64](v, 0, true, mp)
	case types.T_float64:
		return AppendFixed[float64](v, 0, true, mp)
	}
	return moerr.NewNotSupported(context.TODO(), "append null on type %s", v.typ.String())
}

func (v *Vector) String() string {
	var sb strings.Builder
	sb.WriteString(v.typ.String())
	sb.WriteString("[")
	for i := 0; i < v.length; i++ {
		if i > 0 {
			sb.WriteString(" ")
		}
		if v.nsp.Contains(uint64(i)) {
			sb.WriteString("null")
			continue
		}
		switch v.typ.Oid {
		case types.T_bool:
			fmt.Fprintf(&sb, "%v", MustFixedCol[bool](v)[i])
		case types.T_int32:
			fmt.Fprintf(&sb, "%d", MustFixedCol[int32](v)[i])
		case types.T_int64:
			fmt.Fprintf(&sb, "%d", MustFixedCol[int64](v)[i])
		case types.T_float64:
			fmt.Fprintf(&sb, "%v", MustFixedCol[float64](v)[i])
		case types.T_varchar:
			sb.WriteString(v.GetStringAt(i))
		}
	}
	sb.WriteString("]")
	return sb.String()
}
