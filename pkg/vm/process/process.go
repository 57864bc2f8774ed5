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

package process

import (
	"context"

	"github.com/JWXFD2023/doris/pkg/common/mpool"
)

func New(ctx context.Context, mp *mpool.MPool) *Process {
	ctx, cancel := context.WithCancel(ctx)
	return &Process{
		Ctx:    ctx,
		Cancel: cancel,
		mp:     mp,
		Lim: Limitation{
			BatchRows: DefaultBatchRows,
		},
	}
}

func (proc *Process) QueryId() string {
	return proc.Id
}

func (proc *Process) SetQueryId(id string) {
	proc.Id = id
}

// fallback pool for call sites that run without a process, tests mostly
var xxxProcMp = mpool.MustNewZero()

func (proc *Process) GetMPool() *mpool.MPool {
	if proc == nil {
		return xxxProcMp
	}
	return proc.mp
}

func (proc *Process) Mp() *mpool.MPool {
	return proc.GetMPool()
}

func (proc *Process) OperatorOutofMemory(size int64) bool {
	return proc.Mp().Cap() < size
}

// WithAnalyzeInfos sizes the instrumentation table for n operators.
func (proc *Process) WithAnalyzeInfos(n int) *Process {
	proc.AnalInfos = make([]*AnalyzeInfo, n)
	for i := range proc.AnalInfos {
		proc.AnalInfos[i] = NewAnalyzeInfo(int32(i))
	}
	return proc
}

func (proc *Process) GetAnalyze(idx int) Analyze {
	if idx >= len(proc.AnalInfos) || idx < 0 {
		return &operatorAnalyzer{analInfo: nil}
	}
	return &operatorAnalyzer{analInfo: proc.AnalInfos[idx]}
}
