package runtime

import (
	"io"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/resolver"
)

// RuntimeConfig builds a Runtime using the functional-options pattern:
// every With* method returns a modified copy, leaving the receiver
// untouched, so a base config can be reused to derive several runtimes
// that only differ in one or two fields.
type RuntimeConfig struct {
	networking  Networking
	tasks       TaskManager
	source      resolver.Source
	loader      PackageLoader
	moduleCache *cache.ModuleCache
	logger      *zap.Logger
	monitoring  HookFactory
}

// NewRuntimeConfig returns a RuntimeConfig with the package's defaults: a
// GoroutineTaskManager for task scheduling and a no-op logger. The package
// source, loader, and module cache must be supplied explicitly, since
// there is no sensible default for them; networking left unset becomes,
// at Build, a capability that rejects every listen request.
func NewRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		tasks:  GoroutineTaskManager{},
		logger: zap.NewNop(),
	}
}

func (c *RuntimeConfig) clone() *RuntimeConfig {
	ret := *c
	return &ret
}

// WithNetworking sets the pre-opened-listener capability exposed to guests.
func (c *RuntimeConfig) WithNetworking(n Networking) *RuntimeConfig {
	ret := c.clone()
	ret.networking = n
	return ret
}

// WithTaskManager overrides the default GoroutineTaskManager, e.g. with a
// test double that runs tasks synchronously.
func (c *RuntimeConfig) WithTaskManager(t TaskManager) *RuntimeConfig {
	ret := c.clone()
	ret.tasks = t
	return ret
}

// WithSource sets the package resolver.Source queried to resolve
// dependency graphs.
func (c *RuntimeConfig) WithSource(s resolver.Source) *RuntimeConfig {
	ret := c.clone()
	ret.source = s
	return ret
}

// WithLoader sets the PackageLoader used to fetch and assemble resolved
// packages.
func (c *RuntimeConfig) WithLoader(l PackageLoader) *RuntimeConfig {
	ret := c.clone()
	ret.loader = l
	return ret
}

// WithModuleCache sets the two-tier compiled-module cache shared across
// instantiations.
func (c *RuntimeConfig) WithModuleCache(mc *cache.ModuleCache) *RuntimeConfig {
	ret := c.clone()
	ret.moduleCache = mc
	return ret
}

// WithLogger sets the structured logger propagated to every component the
// built Runtime hands out. A nil logger is replaced with zap.NewNop.
func (c *RuntimeConfig) WithLogger(logger *zap.Logger) *RuntimeConfig {
	ret := c.clone()
	if logger == nil {
		logger = zap.NewNop()
	}
	ret.logger = logger
	return ret
}

// WithMonitoring arranges for Build to wrap the configured Source and
// Loader in the given HookFactory's hooks, equivalent to calling
// Runtime.WithMonitoring after the fact.
func (c *RuntimeConfig) WithMonitoring(factory HookFactory) *RuntimeConfig {
	ret := c.clone()
	ret.monitoring = factory
	return ret
}

// Build assembles the configured Runtime. If no networking capability was
// configured, guests get one that rejects every listen request.
func (c *RuntimeConfig) Build() *Runtime {
	networking := c.networking
	if networking == nil {
		networking = NewStaticNetworking()
	}
	rt := &Runtime{
		Networking:  networking,
		Tasks:       c.tasks,
		Source:      c.source,
		Loader:      c.loader,
		ModuleCache: c.moduleCache,
		Logger:      c.logger,
	}
	rt.HTTPClient = NewHTTPClient(c.logger)
	if c.monitoring != nil {
		rt = rt.WithMonitoring(c.monitoring)
	}
	return rt
}

// ModuleConfig describes how a single BinaryPackageCommand should be run:
// its arguments, environment, standard streams, and the filesystem exposed
// to it. It carries no behavior of its own; callers pass it to whatever
// invokes the guest (outside this package's scope, per the decoder/executor
// non-goal).
type ModuleConfig struct {
	args   []string
	env    map[string]string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs
}

// NewModuleConfig returns an empty ModuleConfig: no arguments, no
// environment variables, and nil streams/filesystem (callers typically
// substitute os.Stdin/Stdout/Stderr or leave them nil for a no-op guest).
func NewModuleConfig() *ModuleConfig {
	return &ModuleConfig{env: map[string]string{}}
}

func (c *ModuleConfig) clone() *ModuleConfig {
	ret := *c
	ret.args = append([]string(nil), c.args...)
	ret.env = make(map[string]string, len(c.env))
	for k, v := range c.env {
		ret.env[k] = v
	}
	return &ret
}

// WithArgs sets argv, excluding argv[0] which the caller derives from the
// command name being run.
func (c *ModuleConfig) WithArgs(args ...string) *ModuleConfig {
	ret := c.clone()
	ret.args = append([]string(nil), args...)
	return ret
}

// WithEnv sets a single environment variable, overwriting any previous
// value for the same key.
func (c *ModuleConfig) WithEnv(key, value string) *ModuleConfig {
	ret := c.clone()
	ret.env[key] = value
	return ret
}

// WithStdin sets the reader used for the guest's standard input.
func (c *ModuleConfig) WithStdin(stdin io.Reader) *ModuleConfig {
	ret := c.clone()
	ret.stdin = stdin
	return ret
}

// WithStdout sets the writer used for the guest's standard output.
func (c *ModuleConfig) WithStdout(stdout io.Writer) *ModuleConfig {
	ret := c.clone()
	ret.stdout = stdout
	return ret
}

// WithStderr sets the writer used for the guest's standard error.
func (c *ModuleConfig) WithStderr(stderr io.Writer) *ModuleConfig {
	ret := c.clone()
	ret.stderr = stderr
	return ret
}

// WithFS sets the filesystem exposed to the guest, typically a
// BinaryPackage's assembled afero.Fs.
func (c *ModuleConfig) WithFS(fs afero.Fs) *ModuleConfig {
	ret := c.clone()
	ret.fs = fs
	return ret
}

// Args returns a copy of the configured argv.
func (c *ModuleConfig) Args() []string { return append([]string(nil), c.args...) }

// Env returns the value configured for key and whether it was set.
func (c *ModuleConfig) Env(key string) (string, bool) {
	v, ok := c.env[key]
	return v, ok
}

// Stdin, Stdout, Stderr, and FS expose the configured streams and
// filesystem to the code that wires a guest up to run.
func (c *ModuleConfig) Stdin() io.Reader  { return c.stdin }
func (c *ModuleConfig) Stdout() io.Writer { return c.stdout }
func (c *ModuleConfig) Stderr() io.Writer { return c.stderr }
func (c *ModuleConfig) FS() afero.Fs      { return c.fs }
