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

	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// ExecNodeSource adapts a blocking leaf node (a scan) to the pipelined
// source contract. Leaf nodes produce data synchronously, so the source
// is always ready and never reports DependOnSource unless the node
// yields an empty non-final batch.
type ExecNodeSource struct {
	node       vm.ExecNode
	analyzeIdx int

	anal   process.Analyze
	opened bool
}

func NewExecNodeSource(node vm.ExecNode, analyzeIdx int) *ExecNodeSource {
	return &ExecNodeSource{node: node, analyzeIdx: analyzeIdx}
}

func (op *ExecNodeSource) String(buf *bytes.Buffer) {
	buf.WriteString("source(")
	op.node.String(buf)
	buf.WriteString(")")
}

func (op *ExecNodeSource) Prepare(proc *process.Process) error {
	op.anal = proc.GetAnalyze(op.analyzeIdx)
	if err := op.node.Open(proc); err != nil {
		return err
	}
	op.opened = true
	return nil
}

func (op *ExecNodeSource) CanRead() bool {
	return true
}

func (op *ExecNodeSource) GetBlock(proc *process.Process, bat *batch.Batch) (SourceState, error) {
	op.anal.Start()
	defer op.anal.Stop()

	bat.CleanOnlyData()
	eos := false
	if err := op.node.Pull(proc, bat, &eos); err != nil {
		return Finished, err
	}
	op.anal.Output(bat)
	if eos {
		return Finished, nil
	}
	if bat.IsEmpty() {
		return DependOnSource, nil
	}
	return Running, nil
}

func (op *ExecNodeSource) RowDesc() vm.RowDesc {
	return op.node.RowDesc()
}

func (op *ExecNodeSource) Close(proc *process.Process, pipelineFailed bool, err error) {
	if !op.opened {
		return
	}
	op.opened = false
	op.node.Close(proc)
}
