package wasix

import (
	"context"
	"sync"
	"time"

	"github.com/wasmerio/wasmer-runtime-go/runtime"
)

// ThreadTable tracks guest-thread Tasks by name so thread_join can find
// the goroutine a prior thread_spawn-equivalent call started.
type ThreadTable struct {
	mu      sync.Mutex
	threads map[string]runtime.Task
}

// NewThreadTable returns an empty thread table.
func NewThreadTable() *ThreadTable {
	return &ThreadTable{threads: make(map[string]runtime.Task)}
}

// Register records a running thread's Task under name, for a later
// ThreadJoin to find.
func (t *ThreadTable) Register(name string, task runtime.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threads[name] = task
}

// ThreadSleep implements thread_sleep: suspend the calling
// goroutine-backed guest thread for d, cancellable via ctx the same way
// a blocking host call can be interrupted.
func ThreadSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ThreadJoin implements thread_join: block until the named thread's
// TaskManager-tracked goroutine completes, returning its exit state
// (nil for a clean exit, its error otherwise).
func ThreadJoin(ctx context.Context, table *ThreadTable, name string) error {
	table.mu.Lock()
	task, ok := table.threads[name]
	table.mu.Unlock()
	if !ok {
		return &SyscallError{Errno: ErrnoInval}
	}
	return task.Join(ctx)
}
