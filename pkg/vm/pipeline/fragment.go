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
	"sync"
	"sync/atomic"
	"time"

	"github.com/JWXFD2023/doris/pkg/logutil"
	"github.com/JWXFD2023/doris/pkg/vm/process"
)

// Fragment groups the tasks of one query fragment. All tasks share the
// fragment's process, so its context cancel reaches every sibling. The
// first task error wins; the rest observe the cancelled context at
// their next step boundary and fail fast.
type Fragment struct {
	proc  *process.Process
	tasks []*PipelineTask

	remaining int32
	errOnce   sync.Once
	err       error
	done      chan struct{}
	started   time.Time
}

func NewFragment(proc *process.Process) *Fragment {
	return &Fragment{
		proc: proc,
		done: make(chan struct{}),
	}
}

// AddTask builds a task over the fragment's process and registers it.
// Must be called before Start.
func (f *Fragment) AddTask(source SourceOperator, transforms []TransformOperator,
	sink SinkOperator) *PipelineTask {
	t := NewPipelineTask(int32(len(f.tasks)), f.proc, source, transforms, sink)
	t.onTerminal = f.onTaskTerminal
	f.tasks = append(f.tasks, t)
	return t
}

func (f *Fragment) Tasks() []*PipelineTask {
	return f.tasks
}

// Start submits every task to the scheduler.
func (f *Fragment) Start(s *Scheduler) error {
	f.started = time.Now()
	atomic.StoreInt32(&f.remaining, int32(len(f.tasks)))
	logutil.Infof("fragment of query %s started with %d tasks",
		f.proc.QueryId(), len(f.tasks))
	for i, t := range f.tasks {
		if err := s.Schedule(t); err != nil {
			// fail this task and every not-yet-scheduled sibling so
			// Wait still observes a terminal state for all of them;
			// already-running tasks fail through the cancelled context
			for _, rest := range f.tasks[i:] {
				rest.fail(err)
			}
			return err
		}
	}
	return nil
}

func (f *Fragment) onTaskTerminal(t *PipelineTask, err error) {
	if err != nil {
		f.errOnce.Do(func() {
			f.err = err
			logutil.Errorf("task %d of query %s failed: %v",
				t.Id, f.proc.QueryId(), err)
			// cancel the siblings; they fail at the next step boundary
			f.proc.Cancel()
		})
	}
	if atomic.AddInt32(&f.remaining, -1) == 0 {
		logutil.Infof("fragment of query %s done in %s",
			f.proc.QueryId(), time.Since(f.started))
		close(f.done)
	}
}

// Wait blocks until every task reached a terminal state and returns the
// first error, if any.
func (f *Fragment) Wait() error {
	<-f.done
	return f.err
}

// Err is valid after Wait returned.
func (f *Fragment) Err() error {
	return f.err
}
