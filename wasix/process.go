package wasix

import (
	"context"

	"github.com/wasmerio/wasmer-runtime-go/runtime"
)

// SpawnRequest describes a child command proc_spawn wants the host to
// start.
type SpawnRequest struct {
	Command string
	Args    []string
	Preopen []string
}

// ProcSpawn implements proc_spawn: hand the request to rt's TaskManager
// as background work. Preopen plumbing for the spawned process is not
// supported and fails the call with Notsup, the same limitation the
// original documents for non-empty preopen lists — no process-spawning
// backend is in scope for this module, so there is nothing to inherit
// preopens into.
func ProcSpawn(rt *runtime.Runtime, req SpawnRequest, run func(ctx context.Context) error) (runtime.Task, error) {
	if len(req.Preopen) > 0 {
		return nil, notsup(nil)
	}
	return rt.Tasks.Spawn(run), nil
}
