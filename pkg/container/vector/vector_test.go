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
	"testing"

	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/stretchr/testify/require"
)

func TestAppendFixed(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_int64.ToType())

	for i := int64(0); i < 100; i++ {
		require.NoError(t, AppendFixed(vec, i, false, mp))
	}
	require.Equal(t, 100, vec.Length())
	col := MustFixedCol[int64](vec)
	require.Equal(t, int64(0), col[0])
	require.Equal(t, int64(99), col[99])

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendNull(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_float64.ToType())

	require.NoError(t, AppendFixed(vec, 1.5, false, mp))
	require.NoError(t, AppendFixed(vec, 0.0, true, mp))
	require.True(t, vec.GetNulls().Contains(1))
	require.False(t, vec.GetNulls().Contains(0))

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestAppendBytes(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_varchar.ToType())

	require.NoError(t, AppendString(vec, "query_timeout", false, mp))
	require.NoError(t, AppendString(vec, "300", false, mp))
	require.Equal(t, 2, vec.Length())
	require.Equal(t, "query_timeout", vec.GetStringAt(0))
	require.Equal(t, "300", vec.GetStringAt(1))

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestCleanOnlyData(t *testing.T) {
	mp := mpool.MustNewZero()
	vec := NewVec(types.T_int64.ToType())

	require.NoError(t, AppendFixed(vec, int64(7), false, mp))
	capBefore := vec.Capacity()
	nbBefore := mp.CurrNB()

	vec.CleanOnlyData()
	require.Equal(t, 0, vec.Length())
	require.Equal(t, capBefore, vec.Capacity())
	require.Equal(t, nbBefore, mp.CurrNB())

	// reuse after clear starts from row zero
	require.NoError(t, AppendFixed(vec, int64(8), false, mp))
	require.Equal(t, []int64{8}, MustFixedCol[int64](vec))

	vec.Free(mp)
	require.Equal(t, int64(0), mp.CurrNB())
}

func TestTypeMismatch(t *testing.T) {
	mp := mpool.MustNewZero()

	vec := NewVec(types.T_varchar.ToType())
	require.Error(t, AppendFixed(vec, int64(1), false, mp))

	fixed := NewVec(types.T_int64.ToType())
	require.Error(t, AppendBytes(fixed, []byte("x"), false, mp))
}
