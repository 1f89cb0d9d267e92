package outqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueuePreservesEnqueueOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int

	q := New(func(msg Message) error {
		mu.Lock()
		got = append(got, msg.(int))
		mu.Unlock()
		return nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		q.Enqueue(func() (Message, error) {
			defer wg.Done()
			// Later entries resolve "faster" than earlier ones, to prove
			// the queue enforces enqueue order, not resolution order.
			time.Sleep(time.Duration(5-i) * time.Millisecond)
			return i, nil
		})
	}
	wg.Wait()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestRegistryCreatesOnePerChannel(t *testing.T) {
	r := NewRegistry(func(channel string) Sender {
		return func(Message) error { return nil }
	}, nil)

	a := r.For("ch1")
	b := r.For("ch1")
	c := r.For("ch2")
	require.Same(t, a, b)
	require.NotSame(t, a, c)
}
