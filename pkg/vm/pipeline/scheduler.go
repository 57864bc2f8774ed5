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
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/JWXFD2023/doris/pkg/logutil"
)

const defaultPollInterval = time.Millisecond

// Scheduler runs pipeline tasks on a fixed worker pool. A task that
// returns StepHasMore is resubmitted, one that returns StepBlocked is
// parked; a poller goroutine re-probes parked tasks at a fixed interval
// and resubmits the ready ones. Workers never sleep inside a step, so
// the pool size bounds execution parallelism, not task count.
type Scheduler struct {
	pool         *ants.Pool
	pollInterval time.Duration

	mu      sync.Mutex
	blocked map[*PipelineTask]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(workerCount int, pollInterval time.Duration) (*Scheduler, error) {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	// the pool must never block a submitter: workers resubmit their own
	// tasks from inside a step, and a blocking Submit with every worker
	// busy would park all of them forever
	pool, err := ants.NewPool(workerCount, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		pool:         pool,
		pollInterval: pollInterval,
		blocked:      make(map[*PipelineTask]struct{}),
		stopCh:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.pollLoop()
	return s, nil
}

// Schedule submits a task for its next step. A saturated pool is not an
// error: the task is parked and the poller resubmits it once a worker
// frees.
func (s *Scheduler) Schedule(t *PipelineTask) error {
	err := s.pool.Submit(func() { s.runStep(t) })
	if err == ants.ErrPoolOverload {
		s.park(t)
		return nil
	}
	return err
}

func (s *Scheduler) runStep(t *PipelineTask) {
	switch t.ExecuteStep() {
	case StepHasMore:
		if err := s.Schedule(t); err != nil {
			// pool is shutting down; park it so Stop drains cleanly
			s.park(t)
		}
	case StepBlocked:
		s.park(t)
	case StepDone:
	}
}

func (s *Scheduler) park(t *PipelineTask) {
	s.mu.Lock()
	s.blocked[t] = struct{}{}
	s.mu.Unlock()
}

// pollLoop wakes parked tasks whose dependency became ready. The probe
// is cheap, so a fixed interval keeps the design free of cross-task
// wakeup plumbing at the cost of at most one interval of extra latency.
func (s *Scheduler) pollLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
		var wake []*PipelineTask
		s.mu.Lock()
		for t := range s.blocked {
			if t.Ready() {
				delete(s.blocked, t)
				wake = append(wake, t)
			}
		}
		s.mu.Unlock()
		for _, t := range wake {
			if err := s.Schedule(t); err != nil {
				logutil.Warnf("resubmit of blocked task %d dropped: %v", t.Id, err)
				s.park(t)
			}
		}
	}
}

// BlockedCount is a diagnostics hook.
func (s *Scheduler) BlockedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocked)
}

// Stop shuts the poller and the worker pool down. Callers wait for
// their fragments first; tasks still parked at this point are dropped.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.pool.Release()
	})
}
