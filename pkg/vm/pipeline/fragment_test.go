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
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/container/batch"
	"github.com/JWXFD2023/doris/pkg/sql/colexec/valuescan"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// Two tasks passing many batches through a bounded queue under a small
// worker pool: nothing is lost, duplicated, or left running.
func TestFragmentQueueTransport(t *testing.T) {
	const (
		numBatches   = 1000
		rowsPerBatch = 4
	)
	proc := testProc(t)
	desc := int64Desc("a")

	scan := &valuescan.Node{Desc: desc}
	var wantSum int64
	for i := int64(0); i < numBatches; i++ {
		rows := make([]int64, rowsPerBatch)
		for j := range rows {
			rows[j] = i
			wantSum += i
		}
		scan.Batches = append(scan.Batches, makeInt64Batch(t, proc.Mp(), desc, rows))
	}

	q := NewBlockQueue(8, false)
	collect := NewCollectSink()

	f := NewFragment(proc)
	f.AddTask(NewExecNodeSource(scan, 0), nil, NewQueueSink(q))
	f.AddTask(NewQueueSource(q, desc, 1), nil, collect)

	s, err := NewScheduler(4, time.Millisecond)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, f.Start(s))
	require.NoError(t, f.Wait())

	for _, task := range f.Tasks() {
		require.Equal(t, TaskFinished, task.State())
	}
	require.True(t, collect.Finished())
	require.Equal(t, numBatches*rowsPerBatch, collect.Rows())

	var gotSum int64
	for _, bat := range collect.Batches() {
		gotSum += col0Sum(bat)
	}
	require.Equal(t, wantSum, gotSum)

	for _, bat := range collect.Batches() {
		bat.Clean(proc.Mp())
	}
	for _, bat := range scan.Batches {
		bat.Clean(proc.Mp())
	}
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

type failAfterTransform struct {
	Passthrough
	remaining int
}

func (tf *failAfterTransform) Transform(proc *process.Process, bat *batch.Batch) error {
	if tf.remaining <= 0 {
		return moerr.NewInvalidInput(proc.Ctx, "poisoned batch")
	}
	tf.remaining--
	return nil
}

// A failing task fails the whole fragment: the first error is reported,
// siblings are cancelled, and every task reaches a terminal state
// exactly once.
func TestFragmentFailurePropagates(t *testing.T) {
	proc := testProc(t)
	desc := int64Desc("a")

	mkScan := func(n int64) *valuescan.Node {
		scan := &valuescan.Node{Desc: desc}
		for i := int64(0); i < n; i++ {
			scan.Batches = append(scan.Batches,
				makeInt64Batch(t, proc.Mp(), desc, []int64{i}))
		}
		return scan
	}
	badScan, slowScan := mkScan(100), mkScan(10000)

	q := NewBlockQueue(8, false)
	collect := NewCollectSink()
	f := NewFragment(proc)
	bad := f.AddTask(NewExecNodeSource(badScan, 0),
		[]TransformOperator{&failAfterTransform{remaining: 3}}, NewCollectSink())
	f.AddTask(NewExecNodeSource(slowScan, 1), nil, NewQueueSink(q))
	f.AddTask(NewQueueSource(q, desc, 2), nil, collect)

	s, err := NewScheduler(2, time.Millisecond)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, f.Start(s))
	err = f.Wait()
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrInvalidInput))

	require.Equal(t, TaskFailed, bad.State())
	for _, task := range f.Tasks() {
		st := task.State()
		require.True(t, st == TaskFinished || st == TaskFailed)
	}

	// a finished consumer keeps its results; a failed one already
	// dropped them
	for _, bat := range collect.Batches() {
		bat.Clean(proc.Mp())
	}
	for _, bat := range badScan.Batches {
		bat.Clean(proc.Mp())
	}
	for _, bat := range slowScan.Batches {
		bat.Clean(proc.Mp())
	}
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}
