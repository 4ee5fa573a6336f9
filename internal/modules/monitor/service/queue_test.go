package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewTaskQueue()
	q.Start()
	defer q.Stop()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		ok := q.Enqueue("n", func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
		require.True(t, ok)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		assert.Equal(t, i, got[i])
	}
}

func TestQueueStopDrains(t *testing.T) {
	q := NewTaskQueue()
	q.Start()

	var mu sync.Mutex
	done := 0
	for i := 0; i < 50; i++ {
		q.Enqueue("n", func() {
			mu.Lock()
			done++
			mu.Unlock()
		})
	}

	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 50, done)
}

func TestQueueStopWithoutStart(t *testing.T) {
	q := NewTaskQueue()
	assert.NotPanics(t, func() { q.Stop() })
	assert.NotPanics(t, func() { q.Stop() })
}

func TestQueueEnqueueWhenStopped(t *testing.T) {
	q := NewTaskQueue()
	assert.False(t, q.Enqueue("n", func() {}))

	q.Start()
	q.Stop()
	assert.False(t, q.Enqueue("n", func() {}))
}

func TestQueueStartIdempotent(t *testing.T) {
	q := NewTaskQueue()
	q.Start()
	q.Start()
	defer q.Stop()

	assert.True(t, q.Running())
}

func TestQueueRecoversPanics(t *testing.T) {
	q := NewTaskQueue()
	q.Start()
	defer q.Stop()

	q.Enqueue("boom", func() { panic("boom") })

	ran := make(chan struct{})
	q.Enqueue("after", func() { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queue died after panic")
	}
}
