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

package vm

import (
	"bytes"

	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/container/types"
	"github.com/JWXFD2023/doris/pkg/container/vector"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// RowDesc describes the rows a node produces.
type RowDesc struct {
	Attrs []string
	Types []types.Type
}

func (rd RowDesc) NumMaterializedSlots() int {
	return len(rd.Types)
}

// ExecNode is the legacy blocking operator. Nodes form a tree; Pull
// blocks until rows are appended into bat or eos is set. A node must
// never be pulled concurrently: once the pipeline engine falls back to
// a node, that node is the single source of truth for end-of-stream.
type ExecNode interface {
	// String returns the string representation of a node.
	String(buf *bytes.Buffer)

	// Open prepares the node for execution. Pull before Open is an
	// internal error.
	Open(proc *process.Process) error

	// Pull appends the next rows into bat and sets eos when the node
	// is drained. bat arrives cleared with the node's vectors in place.
	Pull(proc *process.Process, bat *batch.Batch, eos *bool) error

	// Close releases the node's resources. Idempotent.
	Close(proc *process.Process) error

	RowDesc() RowDesc
}

// NewBatch builds an empty batch with one vector per slot of rd.
func NewBatch(rd RowDesc) *batch.Batch {
	bat := batch.New(rd.Attrs)
	for i, typ := range rd.Types {
		bat.Vecs[i] = vector.NewVec(typ)
	}
	return bat
}
