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
	"sync/atomic"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// TaskState is the lifecycle of a PipelineTask. Transitions only move
// forward into TaskFinished or TaskFailed, exactly one of which is
// reached exactly once.
type TaskState int32

const (
	TaskRunnable TaskState = iota
	TaskRunning
	TaskBlocked
	TaskFinished
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskRunnable:
		return "RUNNABLE"
	case TaskRunning:
		return "RUNNING"
	case TaskBlocked:
		return "BLOCKED"
	case TaskFinished:
		return "FINISHED"
	case TaskFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// StepResult tells the scheduler what to do with the task after one
// execution step.
type StepResult int

const (
	// StepHasMore: progress was made and more is immediately available;
	// resubmit.
	StepHasMore StepResult = iota
	// StepBlocked: park the task until Ready reports true.
	StepBlocked
	// StepDone: the task reached a terminal state, finished or failed.
	StepDone
)

// PipelineTask drives one source -> transforms -> sink chain with
// cooperative, bounded steps. A step never blocks on I/O or on a peer
// task; when it cannot make progress it returns StepBlocked and the
// scheduler parks it.
type PipelineTask struct {
	Id   int32
	proc *process.Process

	source     SourceOperator
	transforms []TransformOperator
	sink       SinkOperator

	state int32

	// working is the batch currently owned by the task; nil after the
	// sink accepted it, until a replacement is obtained.
	working *batch.Batch
	// pending was denied by the sink and is retried before any new
	// source pull.
	pending *batch.Batch
	// eosPending: the source reported Finished but the sink could not
	// flush its final output yet.
	eosPending bool

	prepared bool
	closed   bool
	err      error

	// onTerminal is invoked exactly once when the task reaches
	// TaskFinished or TaskFailed.
	onTerminal func(t *PipelineTask, err error)
}

func NewPipelineTask(id int32, proc *process.Process, source SourceOperator,
	transforms []TransformOperator, sink SinkOperator) *PipelineTask {
	return &PipelineTask{
		Id:         id,
		proc:       proc,
		source:     source,
		transforms: transforms,
		sink:       sink,
	}
}

func (t *PipelineTask) String(buf *bytes.Buffer) {
	t.source.String(buf)
	for _, tf := range t.transforms {
		buf.WriteString(" -> ")
		tf.String(buf)
	}
	buf.WriteString(" -> ")
	t.sink.String(buf)
}

func (t *PipelineTask) State() TaskState {
	return TaskState(atomic.LoadInt32(&t.state))
}

func (t *PipelineTask) setState(s TaskState) {
	atomic.StoreInt32(&t.state, int32(s))
}

func (t *PipelineTask) Err() error {
	return t.err
}

// Prepare runs every operator's Prepare once, before the first step.
func (t *PipelineTask) Prepare() error {
	if t.prepared {
		return nil
	}
	if err := t.source.Prepare(t.proc); err != nil {
		return err
	}
	for _, tf := range t.transforms {
		if err := tf.Prepare(t.proc); err != nil {
			return err
		}
	}
	if err := t.sink.Prepare(t.proc); err != nil {
		return err
	}
	t.prepared = true
	return nil
}

// Ready is the scheduler's probe for a parked task. A cancelled query
// also counts as ready so the next step observes the cancellation and
// fails the task instead of leaving it parked forever.
func (t *PipelineTask) Ready() bool {
	select {
	case <-t.proc.Ctx.Done():
		return true
	default:
	}
	if t.eosPending || t.pending != nil {
		return t.sink.CanWrite()
	}
	return t.source.CanRead()
}

// ExecuteStep runs one bounded unit of work. It checks cancellation
// first, then retries any output the sink denied earlier, then pulls
// at most one batch through the chain.
func (t *PipelineTask) ExecuteStep() (result StepResult) {
	switch t.State() {
	case TaskFinished, TaskFailed:
		return StepDone
	}
	t.setState(TaskRunning)

	defer func() {
		if e := recover(); e != nil {
			t.fail(moerr.ConvertPanicError(t.proc.Ctx, e))
			result = StepDone
		}
	}()

	if err, cancelled := vm.CancelCheck(t.proc); cancelled {
		t.fail(err)
		return StepDone
	}

	if !t.prepared {
		if err := t.Prepare(); err != nil {
			t.fail(err)
			return StepDone
		}
	}

	if t.eosPending {
		return t.tryFinishSink()
	}
	if t.pending != nil {
		if !t.sink.CanWrite() {
			t.setState(TaskBlocked)
			return StepBlocked
		}
		ok, err := t.sink.AddBlock(t.proc, t.pending)
		if err != nil {
			t.fail(err)
			return StepDone
		}
		if !ok {
			t.setState(TaskBlocked)
			return StepBlocked
		}
		t.pending = nil
	}

	if !t.source.CanRead() {
		t.setState(TaskBlocked)
		return StepBlocked
	}

	if t.working == nil {
		t.working = t.acquireBatch()
	}
	srcState, err := t.source.GetBlock(t.proc, t.working)
	if err != nil {
		t.fail(err)
		return StepDone
	}
	for _, tf := range t.transforms {
		if err := tf.Transform(t.proc, t.working); err != nil {
			t.fail(err)
			return StepDone
		}
	}
	if !t.working.IsEmpty() {
		if !t.sink.CanWrite() {
			t.pending, t.working = t.working, nil
			if srcState == Finished {
				t.eosPending = true
			}
			t.setState(TaskBlocked)
			return StepBlocked
		}
		ok, err := t.sink.AddBlock(t.proc, t.working)
		if err != nil {
			t.fail(err)
			return StepDone
		}
		if ok {
			t.working = nil
		} else {
			t.pending, t.working = t.working, nil
			if srcState == Finished {
				t.eosPending = true
			}
			t.setState(TaskBlocked)
			return StepBlocked
		}
	}

	switch srcState {
	case Finished:
		return t.tryFinishSink()
	case Running:
		t.setState(TaskRunnable)
		return StepHasMore
	default: // DependOnSource
		if t.source.CanRead() {
			t.setState(TaskRunnable)
			return StepHasMore
		}
		t.setState(TaskBlocked)
		return StepBlocked
	}
}

func (t *PipelineTask) tryFinishSink() StepResult {
	if t.pending != nil {
		// flush the last denied batch first
		if !t.sink.CanWrite() {
			t.eosPending = true
			t.setState(TaskBlocked)
			return StepBlocked
		}
		ok, err := t.sink.AddBlock(t.proc, t.pending)
		if err != nil {
			t.fail(err)
			return StepDone
		}
		if !ok {
			t.eosPending = true
			t.setState(TaskBlocked)
			return StepBlocked
		}
		t.pending = nil
	}
	ok, err := t.sink.Finish(t.proc)
	if err != nil {
		t.fail(err)
		return StepDone
	}
	if !ok {
		t.eosPending = true
		t.setState(TaskBlocked)
		return StepBlocked
	}
	t.eosPending = false
	t.finish()
	return StepDone
}

// acquireBatch prefers a recycled batch from the sink's free path over
// a fresh allocation.
func (t *PipelineTask) acquireBatch() *batch.Batch {
	if r, has := t.sink.(batchRecycler); has {
		if bat := r.TryGetFreeBatch(); bat != nil {
			return bat
		}
	}
	return vm.NewBatch(t.source.RowDesc())
}

func (t *PipelineTask) finish() {
	t.setState(TaskFinished)
	t.closeOperators(false, nil)
	if t.onTerminal != nil {
		t.onTerminal(t, nil)
	}
}

func (t *PipelineTask) fail(err error) {
	t.err = err
	t.setState(TaskFailed)
	t.closeOperators(true, err)
	if t.onTerminal != nil {
		t.onTerminal(t, err)
	}
}

func (t *PipelineTask) closeOperators(failed bool, err error) {
	if t.closed {
		return
	}
	t.closed = true
	mp := t.proc.Mp()
	if t.working != nil {
		t.working.Clean(mp)
		t.working = nil
	}
	if t.pending != nil {
		t.pending.Clean(mp)
		t.pending = nil
	}
	t.source.Close(t.proc, failed, err)
	for _, tf := range t.transforms {
		tf.Close(t.proc, failed, err)
	}
	t.sink.Close(t.proc, failed, err)
}
