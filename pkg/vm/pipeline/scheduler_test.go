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

	"github.com/JWXFD2023/doris/pkg/sql/colexec/valuescan"
)

// More runnable tasks than workers must still drain: a worker
// resubmitting its own task cannot be allowed to wait for a free slot
// it is occupying itself.
func TestSchedulerTasksExceedWorkers(t *testing.T) {
	const (
		numTasks   = 4
		numBatches = 50
	)
	proc := testProc(t)
	desc := int64Desc("a")

	f := NewFragment(proc)
	var scans []*valuescan.Node
	var collects []*CollectSink
	for i := 0; i < numTasks; i++ {
		scan := &valuescan.Node{Desc: desc}
		for b := int64(0); b < numBatches; b++ {
			scan.Batches = append(scan.Batches,
				makeInt64Batch(t, proc.Mp(), desc, []int64{b}))
		}
		collect := NewCollectSink()
		f.AddTask(NewExecNodeSource(scan, i), nil, collect)
		scans = append(scans, scan)
		collects = append(collects, collect)
	}

	s, err := NewScheduler(1, time.Millisecond)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, f.Start(s))
	require.NoError(t, f.Wait())

	for i, task := range f.Tasks() {
		require.Equal(t, TaskFinished, task.State())
		require.Equal(t, numBatches, collects[i].Rows())
	}

	for i := range collects {
		for _, bat := range collects[i].Batches() {
			bat.Clean(proc.Mp())
		}
		for _, bat := range scans[i].Batches {
			bat.Clean(proc.Mp())
		}
	}
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

// A blocking-policy queue between two tasks on a single worker must not
// stall: sinks only ever use the non-waiting push, so a full queue
// parks the producer instead of pinning the one worker.
func TestSchedulerSingleWorkerBlockPolicyQueue(t *testing.T) {
	const numBatches = 200
	proc := testProc(t)
	desc := int64Desc("a")

	scan := &valuescan.Node{Desc: desc}
	for i := int64(0); i < numBatches; i++ {
		scan.Batches = append(scan.Batches,
			makeInt64Batch(t, proc.Mp(), desc, []int64{i}))
	}
	q := NewBlockQueue(2, true)
	collect := NewCollectSink()

	f := NewFragment(proc)
	f.AddTask(NewExecNodeSource(scan, 0), nil, NewQueueSink(q))
	f.AddTask(NewQueueSource(q, desc, 1), nil, collect)

	s, err := NewScheduler(1, time.Millisecond)
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, f.Start(s))
	require.NoError(t, f.Wait())
	require.Equal(t, numBatches, collect.Rows())

	for _, bat := range collect.Batches() {
		bat.Clean(proc.Mp())
	}
	for _, bat := range scan.Batches {
		bat.Clean(proc.Mp())
	}
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}

// Submitting to a stopped scheduler fails Start; the fragment must
// still bring every task to a terminal state so Wait does not hang.
func TestFragmentStartFailureFailsAllTasks(t *testing.T) {
	proc := testProc(t)
	desc := int64Desc("a")

	mkScan := func() *valuescan.Node {
		scan := &valuescan.Node{Desc: desc}
		scan.Batches = append(scan.Batches,
			makeInt64Batch(t, proc.Mp(), desc, []int64{1}))
		return scan
	}
	scans := []*valuescan.Node{mkScan(), mkScan()}

	f := NewFragment(proc)
	f.AddTask(NewExecNodeSource(scans[0], 0), nil, NewCollectSink())
	f.AddTask(NewExecNodeSource(scans[1], 1), nil, NewCollectSink())

	s, err := NewScheduler(2, time.Millisecond)
	require.NoError(t, err)
	s.Stop()

	err = f.Start(s)
	require.Error(t, err)

	done := make(chan error, 1)
	go func() { done <- f.Wait() }()
	select {
	case werr := <-done:
		require.Error(t, werr)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after a failed Start")
	}
	for _, task := range f.Tasks() {
		require.Equal(t, TaskFailed, task.State())
	}

	for _, scan := range scans {
		for _, bat := range scan.Batches {
			bat.Clean(proc.Mp())
		}
	}
	require.Equal(t, int64(0), proc.Mp().CurrNB())
}
