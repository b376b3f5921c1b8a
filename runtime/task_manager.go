package runtime

import "context"

// Task is a handle to work TaskManager.Spawn started.
type Task interface {
	// Join blocks until the task completes or ctx is done, returning the
	// task's own error if it finished first.
	Join(ctx context.Context) error
}

// TaskManager bridges synchronous guest-thread operations (thread_join,
// proc_spawn) and synchronous embedder call sites onto
// goroutine-backed asynchronous work, the way the resolver and loader
// internally fan out with errgroup. A synchronous caller uses
// SpawnAndBlockOn to run async work to completion without itself being
// async; a guest thread spawn uses Spawn and later joins the Task.
type TaskManager interface {
	// Spawn starts fn in the background and returns a Task to join it.
	Spawn(fn func(ctx context.Context) error) Task

	// SpawnAndBlockOn runs fn to completion, bridging a synchronous
	// caller into the async world so a blocking host call can drive
	// async guest work to completion.
	SpawnAndBlockOn(ctx context.Context, fn func(ctx context.Context) error) error
}

// GoroutineTaskManager is the default TaskManager: Spawn starts a
// goroutine, SpawnAndBlockOn runs fn inline on the calling goroutine
// (there is nothing to bridge when the caller is already synchronous).
type GoroutineTaskManager struct{}

type goroutineTask struct {
	done chan error
}

func (t *goroutineTask) Join(ctx context.Context) error {
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spawn runs fn in a new goroutine, delivering its error to the
// returned Task's Join.
func (GoroutineTaskManager) Spawn(fn func(ctx context.Context) error) Task {
	t := &goroutineTask{done: make(chan error, 1)}
	go func() {
		t.done <- fn(context.Background())
	}()
	return t
}

// SpawnAndBlockOn runs fn on the calling goroutine; there is no
// suspension to bridge when the caller is already synchronous.
func (GoroutineTaskManager) SpawnAndBlockOn(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
