// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_FoldsInSlotOrderRegardlessOfCompletionOrder(t *testing.T) {
	// slot 0's task sleeps longest, slot N-1's task returns first; the
	// fold order must still be slot order (ascending testID here, since
	// dispatch order == slot order in this test).
	delays := []time.Duration{30 * time.Millisecond, 20 * time.Millisecond, 10 * time.Millisecond}
	p := New(3, func(testID uint64, buffer []byte) (int, error) {
		time.Sleep(delays[testID])
		return int(testID) * 10, nil
	})

	for i := uint64(0); i < 3; i++ {
		p.Dispatch(i, nil)
	}
	require.True(t, p.Full())

	var foldedOrder []uint64
	p.Barrier(func(testID uint64, result int, err error) {
		require.NoError(t, err)
		assert.Equal(t, int(testID)*10, result)
		foldedOrder = append(foldedOrder, testID)
	})

	assert.Equal(t, []uint64{0, 1, 2}, foldedOrder)
	assert.False(t, p.HasOccupiedSlots())
}

func TestPool_NoWriteBeforeWorkerReturns(t *testing.T) {
	var workerDone sync.WaitGroup
	workerDone.Add(1)
	started := make(chan struct{})

	p := New(1, func(testID uint64, buffer []byte) (int, error) {
		close(started)
		workerDone.Wait()
		return 42, nil
	})

	p.Dispatch(0, nil)
	<-started
	// release the worker only after confirming Barrier would otherwise block
	go func() {
		time.Sleep(10 * time.Millisecond)
		workerDone.Done()
	}()

	var got int
	p.Barrier(func(testID uint64, result int, err error) {
		got = result
	})
	assert.Equal(t, 42, got)
}

func TestPool_ReleasesSlotsForReuse(t *testing.T) {
	p := New(2, func(testID uint64, buffer []byte) (string, error) {
		return "ok", nil
	})
	p.Dispatch(0, []byte("a"))
	p.Dispatch(1, []byte("b"))
	require.True(t, p.Full())
	p.Barrier(func(testID uint64, result string, err error) {})
	assert.False(t, p.Full())
	assert.False(t, p.HasOccupiedSlots())

	// slots must be usable again after the barrier
	p.Dispatch(5, []byte("c"))
	assert.False(t, p.Full())
}
