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

package group

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/aggexec"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

func testProc(t *testing.T) *process.Process {
	return process.New(context.Background(), mpool.MustNewZero())
}

// stubChild feeds canned batches to a legacy-mode node.
type stubChild struct {
	desc    vm.RowDesc
	batches []*batch.Batch
	cur     int
}

func (n *stubChild) String(buf *bytes.Buffer) { buf.WriteString("stub") }

func (n *stubChild) Open(proc *process.Process) error { return nil }

func (n *stubChild) Pull(proc *process.Process, bat *batch.Batch, eos *bool) error {
	bat.CleanOnlyData()
	if n.cur >= len(n.batches) {
		*eos = true
		return nil
	}
	src := n.batches[n.cur]
	n.cur++
	if _, err := bat.Append(proc.Ctx, proc.Mp(), src); err != nil {
		return err
	}
	if n.cur >= len(n.batches) {
		*eos = true
	}
	return nil
}

func (n *stubChild) Close(proc *process.Process) error { return nil }

func (n *stubChild) RowDesc() vm.RowDesc { return n.desc }

func sumCountNode() *Node {
	return &Node{
		GroupIdx:  0,
		GroupAttr: "k",
		Aggs: []aggexec.AggSpec{
			{Op: aggexec.AggSum, ColIdx: 1, Typ: types.New(types.T_int64)},
			{Op: aggexec.AggCount, ColIdx: 1, Typ: types.New(types.T_int64)},
		},
		AggAttrs: []string{"sum_v", "count_v"},
	}
}

func makeKV(t *testing.T, proc *process.Process, desc vm.RowDesc, keys, vals []int64) *batch.Batch {
	bat := vm.NewBatch(desc)
	for i := range keys {
		require.NoError(t, vector.AppendFixed(bat.GetVector(0), keys[i], false, proc.Mp()))
		require.NoError(t, vector.AppendFixed(bat.GetVector(1), vals[i], false, proc.Mp()))
	}
	bat.SetRowCount(len(keys))
	return bat
}

func resultByKey(bat *batch.Batch) map[int64][]int64 {
	out := make(map[int64][]int64)
	keys := vector.MustFixedCol[int64](bat.GetVector(0))
	for row := 0; row < bat.RowCount(); row++ {
		var vals []int64
		for col := 1; col < bat.VectorCount(); col++ {
			vals = append(vals, vector.MustFixedCol[int64](bat.GetVector(int32(col)))[row])
		}
		out[keys[row]] = vals
	}
	return out
}

func TestNodeAbsorbAndPull(t *testing.T) {
	proc := testProc(t)
	desc := vm.RowDesc{
		Attrs: []string{"k", "v"},
		Types: []types.Type{types.New(types.T_int64), types.New(types.T_int64)},
	}
	n := sumCountNode()
	require.NoError(t, n.Open(proc))
	require.NoError(t, n.Open(proc)) // idempotent

	in := makeKV(t, proc, desc,
		[]int64{1, 2, 1, 3, 2, 1},
		[]int64{10, 20, 30, 40, 50, 60})
	out, err := n.Absorb(proc, in, nil)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, 3, n.GroupCount())
	in.Clean(proc.Mp())

	bat := vm.NewBatch(n.RowDesc())
	eos := false
	require.NoError(t, n.Pull(proc, bat, &eos))
	require.True(t, eos)
	require.Equal(t, 3, bat.RowCount())
	got := resultByKey(bat)
	require.Equal(t, []int64{100, 3}, got[1])
	require.Equal(t, []int64{70, 2}, got[2])
	require.Equal(t, []int64{40, 1}, got[3])

	// a pull past the end is a clean end-of-stream
	require.NoError(t, n.Pull(proc, bat, &eos))
	require.True(t, eos)
	require.True(t, bat.IsEmpty())

	bat.Clean(proc.Mp())
	require.NoError(t, n.Close(proc))
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestNodeUseBeforeOpen(t *testing.T) {
	proc := testProc(t)
	n := sumCountNode()
	_, err := n.Absorb(proc, nil, nil)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))

	bat := vm.NewBatch(n.RowDesc())
	eos := false
	err = n.Pull(proc, bat, &eos)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInternal))
	bat.Clean(proc.Mp())
}

func TestNodeStreamingThreshold(t *testing.T) {
	proc := testProc(t)
	desc := vm.RowDesc{
		Attrs: []string{"k", "v"},
		Types: []types.Type{types.New(types.T_int64), types.New(types.T_int64)},
	}
	n := sumCountNode()
	n.StreamingThreshold = 2
	require.NoError(t, n.Open(proc))

	in := makeKV(t, proc, desc, []int64{1, 2}, []int64{10, 20})
	out, err := n.Absorb(proc, in, nil)
	require.NoError(t, err)
	require.Nil(t, out)
	in.Clean(proc.Mp())

	// the table is at the threshold: this batch is pre-aggregated on
	// its own and handed back instead of growing the table
	in = makeKV(t, proc, desc, []int64{5, 5, 6}, []int64{1, 2, 3})
	out, err = n.Absorb(proc, in, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, 2, out.RowCount())
	require.Equal(t, 2, n.GroupCount())
	got := resultByKey(out)
	require.Equal(t, []int64{3, 2}, got[5])
	require.Equal(t, []int64{3, 1}, got[6])
	in.Clean(proc.Mp())
	out.Clean(proc.Mp())

	require.NoError(t, n.Close(proc))
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestNodeMergePartials(t *testing.T) {
	proc := testProc(t)
	final := &Node{
		GroupAttr: "k",
		Aggs: []aggexec.AggSpec{
			{Op: aggexec.AggSum, Typ: types.New(types.T_int64)},
			{Op: aggexec.AggCount, Typ: types.New(types.T_int64)},
		},
		AggAttrs: []string{"sum_v", "count_v"},
		IsMerge:  true,
	}
	require.NoError(t, final.Open(proc))
	desc := final.RowDesc()

	// two partial states for key 1: (sum 10, count 2) and (sum 5, count 1)
	partial := vm.NewBatch(desc)
	for _, row := range [][3]int64{{1, 10, 2}, {1, 5, 1}, {2, 7, 1}} {
		for col, v := range row {
			require.NoError(t, vector.AppendFixed(partial.GetVector(int32(col)), v, false, proc.Mp()))
		}
	}
	partial.SetRowCount(3)
	out, err := final.Absorb(proc, partial, nil)
	require.NoError(t, err)
	require.Nil(t, out)
	partial.Clean(proc.Mp())

	bat := vm.NewBatch(desc)
	eos := false
	require.NoError(t, final.Pull(proc, bat, &eos))
	require.True(t, eos)
	got := resultByKey(bat)
	require.Equal(t, []int64{15, 3}, got[1])
	require.Equal(t, []int64{7, 1}, got[2])

	bat.Clean(proc.Mp())
	require.NoError(t, final.Close(proc))
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

func TestNodeLegacyChild(t *testing.T) {
	proc := testProc(t)
	desc := vm.RowDesc{
		Attrs: []string{"k", "v"},
		Types: []types.Type{types.New(types.T_int64), types.New(types.T_int64)},
	}
	child := &stubChild{desc: desc}
	child.batches = append(child.batches,
		makeKV(t, proc, desc, []int64{1, 2}, []int64{1, 2}),
		makeKV(t, proc, desc, []int64{1, 2}, []int64{3, 4}))

	n := sumCountNode()
	n.Child = child
	require.NoError(t, n.Open(proc))

	bat := vm.NewBatch(n.RowDesc())
	eos := false
	require.NoError(t, n.Pull(proc, bat, &eos))
	require.True(t, eos)
	got := resultByKey(bat)
	require.Equal(t, []int64{4, 2}, got[1])
	require.Equal(t, []int64{6, 2}, got[2])

	bat.Clean(proc.Mp())
	for _, b := range child.batches {
		b.Clean(proc.Mp())
	}
	require.NoError(t, n.Close(proc))
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}
