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
	"sync"

	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// QueueSink forwards batches into a BlockQueue unchanged. Accepted
// batches change owner; denied batches stay with the caller for a
// retry.
type QueueSink struct {
	queue    *BlockQueue
	finished bool
}

func NewQueueSink(queue *BlockQueue) *QueueSink {
	return &QueueSink{queue: queue.Acquire()}
}

func (op *QueueSink) String(buf *bytes.Buffer) {
	buf.WriteString("queue_sink")
}

func (op *QueueSink) Prepare(proc *process.Process) error {
	return nil
}

func (op *QueueSink) CanWrite() bool {
	return op.queue.CanPush()
}

func (op *QueueSink) AddBlock(proc *process.Process, bat *batch.Batch) (bool, error) {
	if bat.IsEmpty() {
		return true, nil
	}
	return op.queue.TryPushReady(proc.Ctx, bat)
}

func (op *QueueSink) Finish(proc *process.Process) (bool, error) {
	op.finished = true
	op.queue.MarkProducerFinished()
	return true, nil
}

// TryGetFreeBatch hands a recycled batch back to the task so the ready
// path reuses allocations instead of growing them.
func (op *QueueSink) TryGetFreeBatch() *batch.Batch {
	return op.queue.TryPopFree()
}

func (op *QueueSink) Close(proc *process.Process, pipelineFailed bool, err error) {
	if !op.finished {
		// unblock the consumer even on a failed producer; the fragment
		// cancels the consumer through the shared context anyway
		op.queue.MarkProducerFinished()
	}
	op.queue.Release(proc.Mp())
}

// CollectSink accumulates every accepted batch in memory. It is the
// terminal sink of a fragment whose results are read by the client
// after Wait returns.
type CollectSink struct {
	mu       sync.Mutex
	bats     []*batch.Batch
	finished bool
}

func NewCollectSink() *CollectSink {
	return &CollectSink{}
}

func (op *CollectSink) String(buf *bytes.Buffer) {
	buf.WriteString("collect_sink")
}

func (op *CollectSink) Prepare(proc *process.Process) error {
	return nil
}

func (op *CollectSink) CanWrite() bool {
	return true
}

func (op *CollectSink) AddBlock(proc *process.Process, bat *batch.Batch) (bool, error) {
	if bat.IsEmpty() {
		return true, nil
	}
	op.mu.Lock()
	op.bats = append(op.bats, bat)
	op.mu.Unlock()
	return true, nil
}

func (op *CollectSink) Finish(proc *process.Process) (bool, error) {
	op.mu.Lock()
	op.finished = true
	op.mu.Unlock()
	return true, nil
}

// Batches returns the collected results. Valid after the fragment
// completed.
func (op *CollectSink) Batches() []*batch.Batch {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.bats
}

func (op *CollectSink) Finished() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.finished
}

// Rows sums the row counts of the collected batches.
func (op *CollectSink) Rows() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	n := 0
	for _, bat := range op.bats {
		n += bat.RowCount()
	}
	return n
}

func (op *CollectSink) Close(proc *process.Process, pipelineFailed bool, err error) {
	if !pipelineFailed {
		return
	}
	op.mu.Lock()
	bats := op.bats
	op.bats = nil
	op.mu.Unlock()
	for _, bat := range bats {
		bat.Clean(proc.Mp())
	}
}
