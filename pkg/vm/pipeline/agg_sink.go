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
	"github.com/JWXFD2023/doris/pkg/sql/colexec/group"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// StreamingAggSink is the producing half of a streaming aggregation.
// Input batches are absorbed into the shared aggregation node; when the
// node decides to stream instead, the pre-aggregated batch goes into
// the queue for the consuming StreamingAggSource. Spent input batches
// are kept on a local free-list because their layout differs from the
// queue's output layout.
type StreamingAggSink struct {
	queue *BlockQueue
	node  *group.Node

	freeIn     []*batch.Batch
	pendingOut *batch.Batch
	finished   bool
}

func NewStreamingAggSink(queue *BlockQueue, node *group.Node) *StreamingAggSink {
	return &StreamingAggSink{
		queue: queue.Acquire(),
		node:  node,
	}
}

func (op *StreamingAggSink) String(buf *bytes.Buffer) {
	buf.WriteString("streaming_agg_sink(")
	op.node.String(buf)
	buf.WriteString(")")
}

func (op *StreamingAggSink) Prepare(proc *process.Process) error {
	return op.node.Open(proc)
}

func (op *StreamingAggSink) CanWrite() bool {
	return op.queue.CanPush()
}

// flushPending retries a pre-aggregated batch that could not be pushed
// earlier. Reports whether the pending slot is clear.
func (op *StreamingAggSink) flushPending(proc *process.Process) (bool, error) {
	if op.pendingOut == nil {
		return true, nil
	}
	ok, err := op.queue.TryPushReady(proc.Ctx, op.pendingOut)
	if err != nil {
		return false, err
	}
	if ok {
		op.pendingOut = nil
	}
	return ok, nil
}

func (op *StreamingAggSink) AddBlock(proc *process.Process, bat *batch.Batch) (bool, error) {
	if ok, err := op.flushPending(proc); err != nil || !ok {
		return false, err
	}
	if bat.IsEmpty() {
		return true, nil
	}
	out, err := op.node.Absorb(proc, bat, op.queue.TryPopFree)
	if err != nil {
		return false, err
	}
	bat.CleanOnlyData()
	op.freeIn = append(op.freeIn, bat)
	if out == nil {
		return true, nil
	}
	ok, err := op.queue.TryPushReady(proc.Ctx, out)
	if err != nil {
		return false, err
	}
	if !ok {
		// input is absorbed either way; park the output and retry on
		// the next call once the consumer drained some space
		op.pendingOut = out
	}
	return true, nil
}

func (op *StreamingAggSink) Finish(proc *process.Process) (bool, error) {
	if ok, err := op.flushPending(proc); err != nil || !ok {
		return false, err
	}
	op.finished = true
	op.queue.MarkProducerFinished()
	return true, nil
}

// TryGetFreeBatch recycles spent input batches back to the task.
func (op *StreamingAggSink) TryGetFreeBatch() *batch.Batch {
	if n := len(op.freeIn); n > 0 {
		bat := op.freeIn[n-1]
		op.freeIn[n-1] = nil
		op.freeIn = op.freeIn[:n-1]
		return bat
	}
	return nil
}

func (op *StreamingAggSink) Close(proc *process.Process, pipelineFailed bool, err error) {
	if !op.finished {
		op.queue.MarkProducerFinished()
	}
	if op.pendingOut != nil {
		op.pendingOut.Clean(proc.Mp())
		op.pendingOut = nil
	}
	for _, bat := range op.freeIn {
		bat.Clean(proc.Mp())
	}
	op.freeIn = nil
	op.queue.Release(proc.Mp())
}
