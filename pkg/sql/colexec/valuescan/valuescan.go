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

package valuescan

import (
	"bytes"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// Node replays a fixed list of in-memory batches. It is the leaf of
// tests and of plans over literal row sets. The node copies rows out on
// each Pull; the originals stay owned by whoever built them.
type Node struct {
	Desc    vm.RowDesc
	Batches []*batch.Batch

	cur    int
	opened bool
}

func (n *Node) String(buf *bytes.Buffer) {
	buf.WriteString("value_scan")
}

func (n *Node) Open(proc *process.Process) error {
	n.cur = 0
	n.opened = true
	return nil
}

func (n *Node) Pull(proc *process.Process, bat *batch.Batch, eos *bool) error {
	if bat == nil || eos == nil {
		return moerr.NewInvalidInput(proc.Ctx, "invalid parameter.")
	}
	if !n.opened {
		return moerr.NewInternalError(proc.Ctx, "value scan used before open")
	}
	bat.CleanOnlyData()
	if n.cur >= len(n.Batches) {
		*eos = true
		return nil
	}
	src := n.Batches[n.cur]
	n.cur++
	if _, err := bat.Append(proc.Ctx, proc.Mp(), src); err != nil {
		return err
	}
	if n.cur >= len(n.Batches) {
		*eos = true
	}
	return nil
}

func (n *Node) Close(proc *process.Process) error {
	n.opened = false
	return nil
}

func (n *Node) RowDesc() vm.RowDesc {
	return n.Desc
}
