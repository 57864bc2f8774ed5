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
	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// CancelCheck reports whether the query the process belongs to was
// cancelled. Checked at step boundaries only.
func CancelCheck(proc *process.Process) (error, bool) {
	select {
	case <-proc.Ctx.Done():
		return moerr.NewQueryInterrupted(proc.Ctx), true
	default:
		return nil, false
	}
}

// Run drives a legacy node tree to completion on the calling goroutine,
// handing every non-empty batch to deliver. This is the blocking
// fallback execution mode; the pipeline engine is the default.
func Run(node ExecNode, proc *process.Process, deliver func(*process.Process, *batch.Batch) error) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = moerr.ConvertPanicError(proc.Ctx, e)
		}
	}()

	if err = node.Open(proc); err != nil {
		return err
	}
	defer func() {
		if e := node.Close(proc); err == nil {
			err = e
		}
	}()

	bat := NewBatch(node.RowDesc())
	defer bat.Clean(proc.Mp())

	for {
		if err, cancelled := CancelCheck(proc); cancelled {
			return err
		}
		bat.CleanOnlyData()
		eos := false
		if err := node.Pull(proc, bat, &eos); err != nil {
			return err
		}
		if !bat.IsEmpty() {
			if err := deliver(proc, bat); err != nil {
				return err
			}
		}
		if eos {
			return nil
		}
	}
}
