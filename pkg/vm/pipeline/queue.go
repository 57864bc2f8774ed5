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
	"context"
	"sync"
	"sync/atomic"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
	"github.com/JWXFD2023/doris/pkg/common/mpool"
	"github.com/JWXFD2023/doris/pkg/container/batch"
)

// BlockQueue decouples a producing task from a consuming task with
// bounded memory and exactly-once end-of-stream propagation. It holds a
// FIFO of ready batches, a free-list of emptied batches for reuse, and
// the producer-finished / consumer-detached flags.
//
// The queue is the only structure shared between the two tasks. It is
// reference counted; each side releases on teardown and the last
// release frees the buffered batches. A single mutex guards all state,
// so the finished flag and the ready length are always observed
// together; no lock is ever held across blocking work except the
// explicit block-on-full producer wait.
type BlockQueue struct {
	mu      sync.Mutex
	notFull *sync.Cond

	ready []*batch.Batch
	free  []*batch.Batch

	capacity    int
	blockOnFull bool

	finished bool
	detached bool
	released bool

	refCnt int32
}

func NewBlockQueue(capacity int, blockOnFull bool) *BlockQueue {
	if capacity <= 0 {
		capacity = 16
	}
	q := &BlockQueue{
		capacity:    capacity,
		blockOnFull: blockOnFull,
	}
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Acquire takes a shared-ownership reference.
func (q *BlockQueue) Acquire() *BlockQueue {
	atomic.AddInt32(&q.refCnt, 1)
	return q
}

// Release drops one reference; the last one frees every buffered batch.
func (q *BlockQueue) Release(mp *mpool.MPool) {
	if atomic.AddInt32(&q.refCnt, -1) > 0 {
		return
	}
	q.mu.Lock()
	ready, free := q.ready, q.free
	q.ready, q.free = nil, nil
	q.released = true
	q.mu.Unlock()
	for _, bat := range ready {
		bat.Clean(mp)
	}
	for _, bat := range free {
		bat.Clean(mp)
	}
}

// PushReady inserts bat at the tail of the ready sequence. With the
// reject policy a full queue returns ok=false and the producer retries
// later; with the block policy the call waits for space. Pushing after
// MarkProducerFinished is an invariant violation; pushing after the
// consumer detached reports a closed stream.
//
// Only producers that own a goroutine may use the blocking form.
// Cooperative task steps go through TryPushReady.
func (q *BlockQueue) PushReady(ctx context.Context, bat *batch.Batch) (ok bool, err error) {
	return q.push(ctx, bat, q.blockOnFull)
}

// TryPushReady never waits, whatever the configured policy: a full
// queue reports ok=false and the caller parks. This is the only push a
// pipeline sink may issue inside a task step.
func (q *BlockQueue) TryPushReady(ctx context.Context, bat *batch.Batch) (ok bool, err error) {
	return q.push(ctx, bat, false)
}

func (q *BlockQueue) push(ctx context.Context, bat *batch.Batch, wait bool) (ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.detached {
			return false, moerr.NewStreamClosed(ctx)
		}
		if q.finished {
			return false, moerr.NewInvalidState(ctx, "push into finished block queue")
		}
		if len(q.ready) < q.capacity {
			q.ready = append(q.ready, bat)
			return true, nil
		}
		if !wait {
			return false, nil
		}
		q.notFull.Wait()
	}
}

// TryPopReady removes and returns the head of the ready sequence, nil
// if none.
func (q *BlockQueue) TryPopReady() *batch.Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ready) == 0 {
		return nil
	}
	bat := q.ready[0]
	q.ready[0] = nil
	q.ready = q.ready[1:]
	q.notFull.Signal()
	return bat
}

// PushFree returns an emptied batch to the free-list for reuse by the
// producer side.
func (q *BlockQueue) PushFree(bat *batch.Batch) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return
	}
	q.free = append(q.free, bat)
}

// TryPopFree is the producer-side allocation fast path.
func (q *BlockQueue) TryPopFree() *batch.Batch {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.free) == 0 {
		return nil
	}
	bat := q.free[len(q.free)-1]
	q.free[len(q.free)-1] = nil
	q.free = q.free[:len(q.free)-1]
	return bat
}

// MarkProducerFinished is idempotent. Once set, the queue becomes
// exhausted as soon as the ready sequence drains, and stays exhausted.
func (q *BlockQueue) MarkProducerFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = true
	q.notFull.Broadcast()
}

// DetachConsumer tells the producer side nobody will pop again. Blocked
// producers wake up and observe the closed stream.
func (q *BlockQueue) DetachConsumer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.detached = true
	q.notFull.Broadcast()
}

// IsExhausted is true iff the producer finished and the ready sequence
// is empty. Monotonic: pushes after the finished flag are rejected, so
// once observed true it never reverts.
func (q *BlockQueue) IsExhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished && len(q.ready) == 0
}

// HasDataOrFinished is the scheduler's readiness probe: the consumer
// can make progress either by consuming a batch or by observing
// exhaustion and moving to its fallback.
func (q *BlockQueue) HasDataOrFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready) > 0 || q.finished
}

// CanPush is the producer's admission probe.
func (q *BlockQueue) CanPush() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.detached {
		// let the push run and report the closed stream
		return true
	}
	return len(q.ready) < q.capacity
}

func (q *BlockQueue) ReadyLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

func (q *BlockQueue) FreeLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.free)
}
