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

// QueueSource is the consuming end of a plain queue transport: the
// counterpart of QueueSink when no aggregation node sits between the
// two tasks.
type QueueSource struct {
	queue      *BlockQueue
	desc       vm.RowDesc
	analyzeIdx int

	anal process.Analyze
}

func NewQueueSource(queue *BlockQueue, desc vm.RowDesc, analyzeIdx int) *QueueSource {
	return &QueueSource{
		queue:      queue.Acquire(),
		desc:       desc,
		analyzeIdx: analyzeIdx,
	}
}

func (op *QueueSource) String(buf *bytes.Buffer) {
	buf.WriteString("queue_source")
}

func (op *QueueSource) Prepare(proc *process.Process) error {
	op.anal = proc.GetAnalyze(op.analyzeIdx)
	return nil
}

func (op *QueueSource) CanRead() bool {
	return op.queue.HasDataOrFinished()
}

func (op *QueueSource) GetBlock(proc *process.Process, bat *batch.Batch) (SourceState, error) {
	op.anal.Start()
	defer op.anal.Stop()

	bat.CleanOnlyData()
	if got := op.queue.TryPopReady(); got != nil {
		bat.Swap(got)
		got.Clear(op.desc.NumMaterializedSlots())
		op.queue.PushFree(got)
		op.anal.Output(bat)
		return DependOnSource, nil
	}
	if op.queue.IsExhausted() {
		return Finished, nil
	}
	return DependOnSource, nil
}

func (op *QueueSource) RowDesc() vm.RowDesc {
	return op.desc
}

func (op *QueueSource) Close(proc *process.Process, pipelineFailed bool, err error) {
	op.queue.DetachConsumer()
	op.queue.Release(proc.Mp())
}
