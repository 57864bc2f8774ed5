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
	"context"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
)

// AggOp identifies an aggregate function.
type AggOp int

const (
	AggCount AggOp = iota
	AggSum
	AggMin
	AggMax
)

func (op AggOp) String() string {
	switch op {
	case AggCount:
		return "count"
	case AggSum:
		return "sum"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	}
	return "unknown"
}

// AggSpec binds an aggregate function to an input column.
type AggSpec struct {
	Op     AggOp
	ColIdx int32
	// Typ is the input column's type; it decides the concrete executor.
	Typ types.Type
}

// AggFuncExec holds per-group aggregation state. Groups are dense
// indexes handed out by the caller's hash table; Grows extends the
// state array as new groups appear.
//
// Fill consumes raw input rows, Merge consumes partial states produced
// by an upstream Flush (count merges by summation, the others are
// idempotent under their own operation). Flush appends the states of
// groups [start, end) to vec.
type AggFuncExec interface {
	Grows(n int)
	Fill(group int, vec *vector.Vector, row int)
	Merge(group int, vec *vector.Vector, row int)
	Flush(vec *vector.Vector, start, end int, mp *mpool.MPool) error
	ResultType() types.Type
	Size() int
	Free()
}

// ResultType reports the output type of op applied to an input of type
// typ, without building an executor.
func ResultType(op AggOp, typ types.Type) types.Type {
	if op == AggCount {
		return types.New(types.T_int64)
	}
	return types.New(typ.Oid)
}

// MakeAggExec builds the executor for op over an input of type typ.
func MakeAggExec(ctx context.Context, op AggOp, typ types.Type) (AggFuncExec, error) {
	switch op {
	case AggCount:
		return &countExec{inputType: typ}, nil
	case AggSum:
		switch typ.Oid {
		case types.T_int64:
			return &sumExec[int64]{typ: types.New(types.T_int64)}, nil
		case types.T_float64:
			return &sumExec[float64]{typ: types.New(types.T_float64)}, nil
		}
	case AggMin, AggMax:
		less := op == AggMin
		switch typ.Oid {
		case types.T_int64:
			return &extremeExec[int64]{typ: types.New(types.T_int64), takeMin: less}, nil
		case types.T_float64:
			return &extremeExec[float64]{typ: types.New(types.T_float64), takeMin: less}, nil
		}
	}
	return nil, moerr.NewNotSupported(ctx, "aggregate %s on type %s", op.String(), typ.String())
}
