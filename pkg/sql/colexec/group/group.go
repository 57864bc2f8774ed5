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

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/aggexec"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// Node is a hash aggregation over a single int64 group-by column.
//
// It serves three shapes of plan:
//   - as the shared node of a streaming aggregation pair, absorbing
//     batches on the producing side and emitting the hash-table
//     remainder on the consuming side;
//   - with IsMerge set, as the final aggregation over partial states;
//   - with Child set, as a legacy blocking node that drains its child
//     inside the first Pull.
//
// When StreamingThreshold is positive and the hash table has grown past
// it, Absorb stops inserting and instead pre-aggregates each input
// batch on its own, returning the partial result for the caller to
// stream downstream. Zero threshold means always absorb.
type Node struct {
	GroupIdx  int32
	GroupAttr string
	Aggs      []aggexec.AggSpec
	AggAttrs  []string

	IsMerge            bool
	StreamingThreshold int
	Child              vm.ExecNode

	ctr *container
}

type container struct {
	ht      map[int64]int
	keys    []int64
	execs   []aggexec.AggFuncExec
	built   bool
	emitted int
}

func (n *Node) String(buf *bytes.Buffer) {
	buf.WriteString("group(")
	buf.WriteString(n.GroupAttr)
	for i, spec := range n.Aggs {
		buf.WriteString(", ")
		buf.WriteString(spec.Op.String())
		buf.WriteString("(")
		buf.WriteString(n.AggAttrs[i])
		buf.WriteString(")")
	}
	buf.WriteString(")")
}

// RowDesc is the output layout: the group key first, then one column
// per aggregate. Valid before Open.
func (n *Node) RowDesc() vm.RowDesc {
	attrs := make([]string, 0, len(n.Aggs)+1)
	typs := make([]types.Type, 0, len(n.Aggs)+1)
	attrs = append(attrs, n.GroupAttr)
	typs = append(typs, types.New(types.T_int64))
	for i, spec := range n.Aggs {
		attrs = append(attrs, n.AggAttrs[i])
		typs = append(typs, aggexec.ResultType(spec.Op, spec.Typ))
	}
	return vm.RowDesc{Attrs: attrs, Types: typs}
}

// Open is idempotent; the node is shared between the two sides of a
// streaming aggregation and only the first Open builds state.
func (n *Node) Open(proc *process.Process) error {
	if n.ctr != nil {
		return nil
	}
	execs, err := n.buildExecs(proc)
	if err != nil {
		return err
	}
	n.ctr = &container{
		ht:    make(map[int64]int),
		execs: execs,
	}
	if n.Child != nil {
		return n.Child.Open(proc)
	}
	return nil
}

func (n *Node) buildExecs(proc *process.Process) ([]aggexec.AggFuncExec, error) {
	execs := make([]aggexec.AggFuncExec, len(n.Aggs))
	for i, spec := range n.Aggs {
		exec, err := aggexec.MakeAggExec(proc.Ctx, spec.Op, spec.Typ)
		if err != nil {
			return nil, err
		}
		execs[i] = exec
	}
	return execs, nil
}

// GroupCount reports the number of distinct keys absorbed so far.
func (n *Node) GroupCount() int {
	if n.ctr == nil {
		return 0
	}
	return len(n.ctr.keys)
}

// Absorb consumes one input batch. Usually it folds the rows into the
// hash table and returns nil. Past the streaming threshold it instead
// pre-aggregates the batch alone and returns the partial result in the
// output layout; freeGet supplies a recycled output batch when one is
// available. The caller keeps ownership of bat either way.
func (n *Node) Absorb(proc *process.Process, bat *batch.Batch,
	freeGet func() *batch.Batch) (*batch.Batch, error) {
	if n.ctr == nil {
		return nil, moerr.NewInternalError(proc.Ctx, "aggregation node used before open")
	}
	if bat == nil || bat.IsEmpty() {
		return nil, nil
	}
	if n.StreamingThreshold > 0 && len(n.ctr.ht) >= n.StreamingThreshold {
		return n.preAggregate(proc, bat, freeGet)
	}
	n.fold(n.ctr, bat)
	return nil, nil
}

// fold inserts every row of bat into ctr's hash table, growing the
// executors as new keys appear.
func (n *Node) fold(ctr *container, bat *batch.Batch) {
	keyVec := bat.GetVector(n.keyIdx())
	keys := vector.MustFixedCol[int64](keyVec)
	rows := bat.RowCount()
	for row := 0; row < rows; row++ {
		k := keys[row]
		g, hit := ctr.ht[k]
		if !hit {
			g = len(ctr.keys)
			ctr.ht[k] = g
			ctr.keys = append(ctr.keys, k)
			for _, exec := range ctr.execs {
				exec.Grows(1)
			}
		}
		for i, exec := range ctr.execs {
			vec := bat.GetVector(n.aggIdx(i))
			if n.IsMerge {
				exec.Merge(g, vec, row)
			} else {
				exec.Fill(g, vec, row)
			}
		}
	}
}

// preAggregate groups the rows of one batch in isolation and flushes
// the partial states into an output batch.
func (n *Node) preAggregate(proc *process.Process, bat *batch.Batch,
	freeGet func() *batch.Batch) (*batch.Batch, error) {
	execs, err := n.buildExecs(proc)
	if err != nil {
		return nil, err
	}
	local := &container{ht: make(map[int64]int), execs: execs}
	n.fold(local, bat)

	var out *batch.Batch
	if freeGet != nil {
		out = freeGet()
	}
	if out == nil {
		out = vm.NewBatch(n.RowDesc())
	}
	if err := n.flushInto(proc, local, out, 0, len(local.keys)); err != nil {
		out.Clean(proc.Mp())
		return nil, err
	}
	for _, exec := range execs {
		exec.Free()
	}
	return out, nil
}

func (n *Node) flushInto(proc *process.Process, ctr *container, out *batch.Batch, start, end int) error {
	mp := proc.Mp()
	keyVec := out.GetVector(0)
	for i := start; i < end; i++ {
		if err := vector.AppendFixed(keyVec, ctr.keys[i], false, mp); err != nil {
			return err
		}
	}
	for i, exec := range ctr.execs {
		if err := exec.Flush(out.GetVector(int32(i)+1), start, end, mp); err != nil {
			return err
		}
	}
	out.SetRowCount(out.RowCount() + (end - start))
	return nil
}

func (n *Node) keyIdx() int32 {
	if n.IsMerge {
		return 0
	}
	return n.GroupIdx
}

func (n *Node) aggIdx(i int) int32 {
	if n.IsMerge {
		return int32(i) + 1
	}
	return n.Aggs[i].ColIdx
}

// Pull emits the hash-table contents in chunks. With a Child set, the
// first Pull drains the child completely before emitting.
func (n *Node) Pull(proc *process.Process, bat *batch.Batch, eos *bool) error {
	if bat == nil || eos == nil {
		return moerr.NewInvalidInput(proc.Ctx, "invalid parameter.")
	}
	if n.ctr == nil {
		return moerr.NewInternalError(proc.Ctx, "aggregation node used before open")
	}
	ctr := n.ctr
	if n.Child != nil && !ctr.built {
		if err := n.drainChild(proc); err != nil {
			return err
		}
	}
	ctr.built = true

	bat.CleanOnlyData()
	if ctr.emitted >= len(ctr.keys) {
		*eos = true
		return nil
	}
	chunk := process.DefaultBatchRows
	if proc.Lim.BatchRows > 0 {
		chunk = int(proc.Lim.BatchRows)
	}
	end := ctr.emitted + chunk
	if end >= len(ctr.keys) {
		end = len(ctr.keys)
		*eos = true
	}
	if err := n.flushInto(proc, ctr, bat, ctr.emitted, end); err != nil {
		return err
	}
	ctr.emitted = end
	return nil
}

func (n *Node) drainChild(proc *process.Process) error {
	child := vm.NewBatch(n.Child.RowDesc())
	defer child.Clean(proc.Mp())
	for {
		child.CleanOnlyData()
		eos := false
		if err := n.Child.Pull(proc, child, &eos); err != nil {
			return err
		}
		if !child.IsEmpty() {
			n.fold(n.ctr, child)
		}
		if eos {
			return nil
		}
	}
}

func (n *Node) Close(proc *process.Process) error {
	if n.ctr == nil {
		return nil
	}
	for _, exec := range n.ctr.execs {
		exec.Free()
	}
	n.ctr = nil
	if n.Child != nil {
		return n.Child.Close(proc)
	}
	return nil
}
