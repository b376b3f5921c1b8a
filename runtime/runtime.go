// Package runtime bundles the pluggable capabilities a guest module's
// imports are ultimately routed to: networking, async task execution,
// package resolution/loading, module caching, and HTTP transport.
// Networking, Tasks, Source, and Loader are capability interfaces so
// tests substitute stubs for any one of them without touching the rest.
package runtime

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/resolver"
)

// Runtime is the capability bundle wasix syscalls and the command
// runners route guest requests through.
type Runtime struct {
	Networking  Networking
	Tasks       TaskManager
	Source      resolver.Source
	Loader      PackageLoader
	ModuleCache *cache.ModuleCache
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

func (r *Runtime) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// WithMonitoring returns a copy of r with Source and Loader wrapped in
// monitoring decorators driven by factory. All other capabilities are
// carried over untouched.
func (r *Runtime) WithMonitoring(factory HookFactory) *Runtime {
	clone := *r
	if r.Source != nil {
		clone.Source = &MonitoringSource{Source: r.Source, Factory: factory}
	}
	if r.Loader != nil {
		clone.Loader = &MonitoringLoader{Loader: r.Loader, Factory: factory}
	}
	return &clone
}
