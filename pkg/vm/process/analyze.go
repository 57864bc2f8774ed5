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
	"sync/atomic"
	"time"

	"github.com/JWXFD2023/doris/pkg/container/batch"
)

// AnalyzeInfo accumulates one operator's telemetry. Written with atomics
// from the worker executing the operator, read by whoever renders the
// profile. Write-only for the engine: nothing reads it on the hot path.
type AnalyzeInfo struct {
	NodeId       int32
	InputRows    int64
	OutputRows   int64
	TimeConsumed int64 // nanoseconds
	InputSize    int64
	OutputSize   int64
}

func NewAnalyzeInfo(nodeId int32) *AnalyzeInfo {
	return &AnalyzeInfo{NodeId: nodeId}
}

func (a *AnalyzeInfo) GetTimeConsumed() time.Duration {
	return time.Duration(atomic.LoadInt64(&a.TimeConsumed))
}

func (a *AnalyzeInfo) GetInputRows() int64 {
	return atomic.LoadInt64(&a.InputRows)
}

func (a *AnalyzeInfo) GetOutputRows() int64 {
	return atomic.LoadInt64(&a.OutputRows)
}

// Analyze is the per-step instrumentation handle an operator holds.
type Analyze interface {
	Start()
	Stop()
	Input(bat *batch.Batch)
	Output(bat *batch.Batch)
}

type operatorAnalyzer struct {
	analInfo *AnalyzeInfo
	start    time.Time
}

func (a *operatorAnalyzer) Start() {
	a.start = time.Now()
}

func (a *operatorAnalyzer) Stop() {
	if a.analInfo != nil {
		atomic.AddInt64(&a.analInfo.TimeConsumed, int64(time.Since(a.start)))
	}
}

func (a *operatorAnalyzer) Input(bat *batch.Batch) {
	if a.analInfo != nil && bat != nil {
		atomic.AddInt64(&a.analInfo.InputSize, int64(bat.Size()))
		atomic.AddInt64(&a.analInfo.InputRows, int64(bat.RowCount()))
	}
}

func (a *operatorAnalyzer) Output(bat *batch.Batch) {
	if a.analInfo != nil && bat != nil {
		atomic.AddInt64(&a.analInfo.OutputSize, int64(bat.Size()))
		atomic.AddInt64(&a.analInfo.OutputRows, int64(bat.RowCount()))
	}
}
