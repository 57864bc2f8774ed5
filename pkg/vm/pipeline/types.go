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

// SourceState is the result of one pull step on a source operator.
type SourceState int

const (
	// Running: the step produced a batch and more are immediately
	// available.
	Running SourceState = iota
	// DependOnSource: no guarantee of progress on the next call; the
	// task should be rescheduled when the dependency is ready. Never an
	// error.
	DependOnSource
	// Finished is terminal: the queue is drained and the upstream
	// reported end-of-stream.
	Finished
)

func (s SourceState) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case DependOnSource:
		return "DEPEND_ON_SOURCE"
	case Finished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// Operator is one stage of a pipeline task. An operator owns no batch
// across calls; it only borrows the one passed in.
type Operator interface {
	String(buf *bytes.Buffer)

	Prepare(proc *process.Process) error

	// Close releases the operator's resources. pipelineFailed marks
	// whether the owning task failed or was cancelled.
	Close(proc *process.Process, pipelineFailed bool, err error)
}

// SourceOperator produces batches for the head of a task's chain.
type SourceOperator interface {
	Operator

	// CanRead is the scheduler's non-blocking readiness probe. The
	// scheduler must not call GetBlock unless it returns true.
	CanRead() bool

	// GetBlock fills bat with the next batch. It returns Finished only
	// together with a definitive end-of-stream; it never returns an
	// empty batch with Running.
	GetBlock(proc *process.Process, bat *batch.Batch) (SourceState, error)

	RowDesc() vm.RowDesc
}

// TransformOperator rewrites a batch in place between source and sink.
type TransformOperator interface {
	Operator

	Transform(proc *process.Process, bat *batch.Batch) error
}

// SinkOperator consumes the chain's batches.
type SinkOperator interface {
	Operator

	// CanWrite is the admission probe; AddBlock may still deny.
	CanWrite() bool

	// AddBlock hands bat to the sink. ok=false means admission denied,
	// retry after CanWrite; on ok the sink owns bat.
	AddBlock(proc *process.Process, bat *batch.Batch) (ok bool, err error)

	// Finish signals that no more batches will arrive. ok=false means
	// the sink could not flush yet, retry after CanWrite; once ok the
	// signal must not be repeated.
	Finish(proc *process.Process) (ok bool, err error)
}

// batchRecycler is implemented by sinks that can hand back an emptied
// batch for reuse instead of forcing a new allocation.
type batchRecycler interface {
	TryGetFreeBatch() *batch.Batch
}

// Passthrough is the no-op transform. It keeps a chain's shape uniform
// where a stage has nothing to compute.
type Passthrough struct{}

func (p *Passthrough) String(buf *bytes.Buffer) {
	buf.WriteString("passthrough")
}

func (p *Passthrough) Prepare(_ *process.Process) error {
	return nil
}

func (p *Passthrough) Transform(_ *process.Process, _ *batch.Batch) error {
	return nil
}

func (p *Passthrough) Close(_ *process.Process, _ bool, _ error) {
}
