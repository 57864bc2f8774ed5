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

package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

func testProc(t *testing.T) *process.Process {
	mp := mpool.MustNewZero()
	proc := process.New(context.Background(), mp).WithAnalyzeInfos(4)
	proc.SetQueryId("test-query")
	return proc
}

func int64Desc(attrs ...string) vm.RowDesc {
	typs := make([]types.Type, len(attrs))
	for i := range typs {
		typs[i] = types.New(types.T_int64)
	}
	return vm.RowDesc{Attrs: attrs, Types: typs}
}

// makeInt64Batch builds a batch of parallel int64 columns.
func makeInt64Batch(t *testing.T, mp *mpool.MPool, desc vm.RowDesc, cols ...[]int64) *batch.Batch {
	bat := vm.NewBatch(desc)
	for i, col := range cols {
		vec := bat.GetVector(int32(i))
		for _, v := range col {
			require.NoError(t, vector.AppendFixed(vec, v, false, mp))
		}
	}
	bat.SetRowCount(len(cols[0]))
	return bat
}

// stubNode is a canned ExecNode: it serves its batches in order and
// reports end-of-stream with the last one, or immediately when empty.
type stubNode struct {
	desc      vm.RowDesc
	batches   []*batch.Batch
	cur       int
	pullCount int
	opened    bool
}

func (n *stubNode) String(buf *bytes.Buffer) { buf.WriteString("stub") }

func (n *stubNode) Open(proc *process.Process) error {
	n.opened = true
	return nil
}

func (n *stubNode) Pull(proc *process.Process, bat *batch.Batch, eos *bool) error {
	n.pullCount++
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

func (n *stubNode) Close(proc *process.Process) error {
	n.opened = false
	return nil
}

func (n *stubNode) RowDesc() vm.RowDesc { return n.desc }

func col0Sum(bat *batch.Batch) int64 {
	var sum int64
	for _, v := range vector.MustFixedCol[int64](bat.GetVector(0))[:bat.RowCount()] {
		sum += v
	}
	return sum
}
