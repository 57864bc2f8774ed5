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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
)

func int64Vec(t *testing.T, mp *mpool.MPool, vals []int64, nullAt ...int) *vector.Vector {
	vec := vector.NewVec(types.New(types.T_int64))
	isNull := make(map[int]bool, len(nullAt))
	for _, i := range nullAt {
		isNull[i] = true
	}
	for i, v := range vals {
		require.NoError(t, vector.AppendFixed(vec, v, isNull[i], mp))
	}
	return vec
}

func TestCountSkipsNulls(t *testing.T) {
	mp := mpool.MustNewZero()
	exec, err := MakeAggExec(context.Background(), AggCount, types.New(types.T_int64))
	require.NoError(t, err)
	exec.Grows(2)

	vec := int64Vec(t, mp, []int64{1, 2, 3, 4}, 1)
	exec.Fill(0, vec, 0)
	exec.Fill(0, vec, 1) // null
	exec.Fill(1, vec, 2)
	exec.Fill(1, vec, 3)

	out := vector.NewVec(types.New(types.T_int64))
	require.NoError(t, exec.Flush(out, 0, 2, mp))
	got := vector.MustFixedCol[int64](out)
	require.Equal(t, int64(1), got[0])
	require.Equal(t, int64(2), got[1])

	// merging partial counts sums them
	exec2, err := MakeAggExec(context.Background(), AggCount, types.New(types.T_int64))
	require.NoError(t, err)
	exec2.Grows(1)
	exec2.Merge(0, out, 0)
	exec2.Merge(0, out, 1)
	out2 := vector.NewVec(types.New(types.T_int64))
	require.NoError(t, exec2.Flush(out2, 0, 1, mp))
	require.Equal(t, int64(3), vector.MustFixedCol[int64](out2)[0])

	vec.Free(mp)
	out.Free(mp)
	out2.Free(mp)
	exec.Free()
	exec2.Free()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestSumAndEmptyGroup(t *testing.T) {
	mp := mpool.MustNewZero()
	exec, err := MakeAggExec(context.Background(), AggSum, types.New(types.T_int64))
	require.NoError(t, err)
	exec.Grows(2)

	vec := int64Vec(t, mp, []int64{5, 7})
	exec.Fill(0, vec, 0)
	exec.Fill(0, vec, 1)
	// group 1 sees no rows

	out := vector.NewVec(types.New(types.T_int64))
	require.NoError(t, exec.Flush(out, 0, 2, mp))
	require.Equal(t, int64(12), vector.MustFixedCol[int64](out)[0])
	require.True(t, out.GetNulls().Contains(1))

	vec.Free(mp)
	out.Free(mp)
	exec.Free()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestMinMax(t *testing.T) {
	mp := mpool.MustNewZero()
	min, err := MakeAggExec(context.Background(), AggMin, types.New(types.T_int64))
	require.NoError(t, err)
	max, err := MakeAggExec(context.Background(), AggMax, types.New(types.T_int64))
	require.NoError(t, err)
	min.Grows(1)
	max.Grows(1)

	vec := int64Vec(t, mp, []int64{3, -1, 9, 4})
	for row := 0; row < 4; row++ {
		min.Fill(0, vec, row)
		max.Fill(0, vec, row)
	}

	outMin := vector.NewVec(types.New(types.T_int64))
	outMax := vector.NewVec(types.New(types.T_int64))
	require.NoError(t, min.Flush(outMin, 0, 1, mp))
	require.NoError(t, max.Flush(outMax, 0, 1, mp))
	require.Equal(t, int64(-1), vector.MustFixedCol[int64](outMin)[0])
	require.Equal(t, int64(9), vector.MustFixedCol[int64](outMax)[0])

	vec.Free(mp)
	outMin.Free(mp)
	outMax.Free(mp)
	min.Free()
	max.Free()
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestMakeAggExecRejectsUnknownType(t *testing.T) {
	_, err := MakeAggExec(context.Background(), AggSum, types.New(types.T_varchar))
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrNotSupported))
}

func TestResultType(t *testing.T) {
	require.Equal(t, types.T_int64, ResultType(AggCount, types.New(types.T_float64)).Oid)
	require.Equal(t, types.T_float64, ResultType(AggSum, types.New(types.T_float64)).Oid)
	require.Equal(t, types.T_int64, ResultType(AggMin, types.New(types.T_int64)).Oid)
}
