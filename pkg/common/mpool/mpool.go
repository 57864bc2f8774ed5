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

package mpool

import (
	"context"
	"sync/atomic"

	"github.com/JWXFD2023/doris/pkg/common/moerr"
)

// MPool is a counting allocator for column storage. Every byte a vector
// holds is accounted here, so tests can assert that a finished fragment
// returned everything it borrowed. A cap of 0 means no limit.
type MPool struct {
	tag string
	cap int64

	currNB  int64
	highNB  int64
	allocCn int64
}

func NewMPool(tag string, cap int64) (*MPool, error) {
	if cap < 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "mpool cap", cap)
	}
	return &MPool{tag: tag, cap: cap}, nil
}

// MustNewZero returns an unlimited pool, for tests and tools.
func MustNewZero() *MPool {
	mp, err := NewMPool("zero_pool", 0)
	if err != nil {
		panic(err)
	}
	return mp
}

func MustNewWithCap(tag string, cap int64) *MPool {
	mp, err := NewMPool(tag, cap)
	if err != nil {
		panic(err)
	}
	return mp
}

func (mp *MPool) Tag() string {
	return mp.tag
}

// CurrNB returns the number of bytes currently allocated.
func (mp *MPool) CurrNB() int64 {
	return atomic.LoadInt64(&mp.currNB)
}

// HighWaterMark returns the peak of CurrNB over the pool's lifetime.
func (mp *MPool) HighWaterMark() int64 {
	return atomic.LoadInt64(&mp.highNB)
}

func (mp *MPool) Cap() int64 {
	if mp.cap == 0 {
		return int64(1) << 62
	}
	return mp.cap
}

func (mp *MPool) Alloc(sz int) ([]byte, error) {
	if sz < 0 {
		return nil, moerr.NewInvalidArg(context.TODO(), "alloc size", sz)
	}
	if sz == 0 {
		return nil, nil
	}
	nb := atomic.AddInt64(&mp.currNB, int64(sz))
	if mp.cap != 0 && nb > mp.cap {
		atomic.AddInt64(&mp.currNB, -int64(sz))
		return nil, moerr.NewOOM(context.TODO())
	}
	for {
		high := atomic.LoadInt64(&mp.highNB)
		if nb <= high || atomic.CompareAndSwapInt64(&mp.highNB, high, nb) {
			break
		}
	}
	atomic.AddInt64(&mp.allocCn, 1)
	return make([]byte, sz), nil
}

// Free returns buf's bytes to the pool accounting. The pool hands out
// exact-capacity slices, so cap(buf) is the allocated size.
func (mp *MPool) Free(buf []byte) {
	if buf == nil {
		return
	}
	atomic.AddInt64(&mp.currNB, -int64(cap(buf)))
}

// Grow reallocates old to at least sz bytes, keeping content. The old
// buffer is released.
func (mp *MPool) Grow(old []byte, sz int) ([]byte, error) {
	if sz <= cap(old) {
		return old[:sz], nil
	}
	buf, err := mp.Alloc(sz)
	if err != nil {
		return nil, err
	}
	copy(buf, old)
	mp.Free(old)
	return buf, nil
}
