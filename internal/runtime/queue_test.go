package runtime

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sdb/internal/behavior"
)

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	seqs := make(chan int64, 50*50)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for s := range seqs {
		assert.False(t, seen[s], "seq %d issued twice", s)
		seen[s] = true
	}
	assert.Len(t, seen, 2500)
}

func TestChangeBuffer_DrainLeavesBufferEmpty(t *testing.T) {
	b := newChangeBuffer()
	b.Append(ChangeRecord{Seq: 1, Handle: 1, State: "value"})
	b.Append(ChangeRecord{Seq: 2, Handle: 2, State: "log"})

	got := b.Drain()
	assert.Equal(t, 0, b.Len())
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Seq)

	// Appends after a drain must not alias the drained batch.
	b.Append(ChangeRecord{Seq: 3, Handle: 1, State: "value"})
	assert.Equal(t, int64(1), got[0].Seq)
	assert.Equal(t, 1, b.Len())
}

func testFactory(t *testing.T) *behavior.Factory {
	t.Helper()
	f, err := behavior.NewFactory(reflect.TypeFor[*seeder](),
		func(*behavior.Assembly) (any, error) { return &seeder{}, nil }, nil)
	require.NoError(t, err)
	return f
}

func TestFactoryQueue_FIFOWithDedup(t *testing.T) {
	q := newFactoryQueue()
	f1, f2 := testFactory(t), testFactory(t)

	q.Push(f1)
	q.Push(f2)
	q.Push(f1)
	assert.Equal(t, 2, q.Len())

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, f1, got)

	// Once popped, a factory may be queued again.
	q.Push(f1)
	got, _ = q.Pop()
	assert.Same(t, f2, got)
	got, _ = q.Pop()
	assert.Same(t, f1, got)

	_, ok = q.Pop()
	assert.False(t, ok)
}
