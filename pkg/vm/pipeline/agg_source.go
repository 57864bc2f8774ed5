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

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// StreamingAggSource reads the pre-aggregated stream pushed by the
// producing side of an aggregation and, once that stream is exhausted,
// pulls the final result synchronously from the shared aggregation
// node. The phase change is one-way: after the first node pull the
// queue is never consulted again, even if the node streams its result
// over several calls.
type StreamingAggSource struct {
	queue      *BlockQueue
	node       vm.ExecNode
	analyzeIdx int

	anal     process.Analyze
	fallback bool
}

func NewStreamingAggSource(queue *BlockQueue, node vm.ExecNode, analyzeIdx int) *StreamingAggSource {
	return &StreamingAggSource{
		queue:      queue.Acquire(),
		node:       node,
		analyzeIdx: analyzeIdx,
	}
}

func (op *StreamingAggSource) String(buf *bytes.Buffer) {
	buf.WriteString("streaming_agg_source(")
	op.node.String(buf)
	buf.WriteString(")")
}

func (op *StreamingAggSource) Prepare(proc *process.Process) error {
	op.anal = proc.GetAnalyze(op.analyzeIdx)
	return nil
}

// CanRead reports whether a GetBlock call can make progress: either a
// pre-aggregated batch is waiting, or the producer finished and the
// source may move on to the final pull.
func (op *StreamingAggSource) CanRead() bool {
	return op.fallback || op.queue.HasDataOrFinished()
}

// GetBlock fills bat with the next output chunk.
//
//   - While the queue still has life in it, a popped batch is swapped
//     into bat and the drained holder goes back to the free-list; the
//     state is DependOnSource because the next batch depends on the
//     producer.
//   - The call that observes exhaustion (pop came back empty and the
//     producer had finished) switches to the fallback phase and pulls
//     from the node within the same call, so no empty-handed round trip
//     is ever returned at the phase boundary.
//   - Finished is returned exactly when the node reports end of stream;
//     the final batch may be empty.
func (op *StreamingAggSource) GetBlock(proc *process.Process, bat *batch.Batch) (SourceState, error) {
	if bat == nil {
		return Finished, moerr.NewInvalidArg(proc.Ctx, "output batch", "nil")
	}
	op.anal.Start()
	defer op.anal.Stop()

	bat.CleanOnlyData()
	eos := false
	if !op.fallback {
		if agg := op.queue.TryPopReady(); agg != nil {
			bat.Swap(agg)
			agg.Clear(op.node.RowDesc().NumMaterializedSlots())
			op.queue.PushFree(agg)
			op.anal.Output(bat)
			return DependOnSource, nil
		}
		if !op.queue.IsExhausted() {
			return DependOnSource, nil
		}
		op.fallback = true
	}
	if err := op.node.Pull(proc, bat, &eos); err != nil {
		return Finished, err
	}
	op.anal.Output(bat)
	if eos {
		return Finished, nil
	}
	return DependOnSource, nil
}

func (op *StreamingAggSource) RowDesc() vm.RowDesc {
	return op.node.RowDesc()
}

func (op *StreamingAggSource) Close(proc *process.Process, pipelineFailed bool, err error) {
	op.queue.DetachConsumer()
	op.queue.Release(proc.Mp())
	op.node.Close(proc)
}
