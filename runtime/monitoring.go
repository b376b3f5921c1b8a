package runtime

import (
	"context"

	"github.com/wasmerio/wasmer-runtime-go/loader"
	"github.com/wasmerio/wasmer-runtime-go/resolver"
)

// Hook is notified around one named operation: Before may enrich ctx
// (e.g. start a span), After observes the outcome.
type Hook interface {
	Before(ctx context.Context, operation string) context.Context
	After(ctx context.Context, operation string, err error)
}

// HookFactory builds a Hook for one operation. Returning nil means no
// hook is notified for that operation, letting a factory opt out of
// monitoring individual operations.
type HookFactory interface {
	NewHook(operation string) Hook
}

// MonitoringSource decorates a resolver.Source, notifying a HookFactory
// around every Query call without altering resolution behavior.
type MonitoringSource struct {
	Source  resolver.Source
	Factory HookFactory
}

func (m *MonitoringSource) Query(ctx context.Context, specifier resolver.PackageSpecifier) ([]resolver.PackageSummary, error) {
	hook := m.Factory.NewHook("resolver.Query")
	if hook == nil {
		return m.Source.Query(ctx, specifier)
	}
	ctx = hook.Before(ctx, "resolver.Query")
	summaries, err := m.Source.Query(ctx, specifier)
	hook.After(ctx, "resolver.Query", err)
	return summaries, err
}

// PackageLoader is the subset of loader.Loader's surface MonitoringLoader
// decorates; defined here so a test double can stand in for *loader.Loader.
type PackageLoader interface {
	Load(ctx context.Context, summary resolver.PackageSummary) (*loader.Container, error)
	LoadPackageTree(ctx context.Context, rootContainer *loader.Container, resolution *resolver.Resolution) (*loader.BinaryPackage, error)
}

// MonitoringLoader decorates a PackageLoader, notifying a HookFactory
// around Load and LoadPackageTree without altering their behavior —
// every other capability on Runtime passes through Runtime's fields
// untouched; only the two operations named here are wrapped.
type MonitoringLoader struct {
	Loader  PackageLoader
	Factory HookFactory
}

func (m *MonitoringLoader) Load(ctx context.Context, summary resolver.PackageSummary) (*loader.Container, error) {
	hook := m.Factory.NewHook("loader.Load")
	if hook == nil {
		return m.Loader.Load(ctx, summary)
	}
	ctx = hook.Before(ctx, "loader.Load")
	c, err := m.Loader.Load(ctx, summary)
	hook.After(ctx, "loader.Load", err)
	return c, err
}

func (m *MonitoringLoader) LoadPackageTree(ctx context.Context, rootContainer *loader.Container, resolution *resolver.Resolution) (*loader.BinaryPackage, error) {
	hook := m.Factory.NewHook("loader.LoadPackageTree")
	if hook == nil {
		return m.Loader.LoadPackageTree(ctx, rootContainer, resolution)
	}
	ctx = hook.Before(ctx, "loader.LoadPackageTree")
	pkg, err := m.Loader.LoadPackageTree(ctx, rootContainer, resolution)
	hook.After(ctx, "loader.LoadPackageTree", err)
	return pkg, err
}
