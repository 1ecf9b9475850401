package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/acmecommerce/orderflow/pkg/logging"
	"github.com/acmecommerce/orderflow/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 2, Base: time.Millisecond, Max: time.Millisecond}
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(logging.New("error"), 2, 8, testPolicy())
	p.Start(context.Background())

	var mu sync.Mutex
	done := map[string]bool{}
	var wg sync.WaitGroup

	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		name := name
		require.True(t, p.Submit(Task{Name: name, Run: func(ctx context.Context) error {
			defer wg.Done()
			mu.Lock()
			done[name] = true
			mu.Unlock()
			return nil
		}}))
	}
	wg.Wait()
	p.Close()

	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, done)
}

func TestPoolRetriesFailingTask(t *testing.T) {
	p := NewPool(logging.New("error"), 1, 4, testPolicy())
	p.Start(context.Background())

	var mu sync.Mutex
	calls := 0
	done := make(chan struct{})
	p.Submit(Task{Name: "flaky", Run: func(ctx context.Context) error {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never succeeded")
	}
	p.Close()
	assert.Equal(t, 2, calls)
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	// Never started, so nothing drains the queue.
	p := NewPool(logging.New("error"), 1, 1, testPolicy())

	ok := p.Submit(Task{Name: "first", Run: func(ctx context.Context) error { return nil }})
	require.True(t, ok)
	ok = p.Submit(Task{Name: "second", Run: func(ctx context.Context) error { return nil }})
	assert.False(t, ok)
}
