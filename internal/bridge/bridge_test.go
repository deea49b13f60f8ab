package bridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyTryConsume(t *testing.T) {
	b := New[string]()
	v, ok := b.TryConsume()
	assert.False(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, 0, b.Len())
}

func TestOrderingSingleProducer(t *testing.T) {
	b := New[string]()
	b.Publish("E1")
	b.Publish("E2")
	b.Publish("E3")
	require.Equal(t, 3, b.Len())

	for _, want := range []string{"E1", "E2", "E3"} {
		got, ok := b.TryConsume()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := b.TryConsume()
	assert.False(t, ok)
}

func TestInterleavedPublishAndConsume(t *testing.T) {
	b := New[int]()
	next := 0
	for round := 0; round < 10; round++ {
		for i := 0; i < 100; i++ {
			b.Publish(round*100 + i)
		}
		// Drain only part of the queue each round to exercise compaction.
		for i := 0; i < 70; i++ {
			v, ok := b.TryConsume()
			require.True(t, ok)
			require.Equal(t, next, v)
			next++
		}
	}
	for {
		v, ok := b.TryConsume()
		if !ok {
			break
		}
		require.Equal(t, next, v)
		next++
	}
	assert.Equal(t, 1000, next)
	assert.Equal(t, 0, b.Len())
}

func TestConcurrentPublishLosesNothing(t *testing.T) {
	const producers = 4
	const perProducer = 2500

	type item struct {
		producer int
		seq      int
	}
	b := New[item]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Publish(item{producer: p, seq: i})
			}
		}(p)
	}

	// Consume concurrently with the producers.
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	received := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		for {
			v, ok := b.TryConsume()
			if !ok {
				return
			}
			// Per-producer order must be preserved.
			require.Equal(t, last[v.producer]+1, v.seq, "producer %d out of order", v.producer)
			last[v.producer] = v.seq
			received++
		}
	}

	for {
		select {
		case <-done:
			drain()
			assert.Equal(t, producers*perProducer, received)
			return
		default:
			drain()
		}
	}
}
