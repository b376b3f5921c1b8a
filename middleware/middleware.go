// Package middleware implements the streaming, per-function operator
// transformation layer that sits between the (externally supplied) Wasm
// decoder and the code generator. It lets compilation features such as
// gas metering or stack-height tracking rewrite a function's operator
// stream without the decoder or code generator knowing about them.
package middleware

import (
	"errors"
	"fmt"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

// LocalFunctionIndex identifies a function local to the module being
// compiled (imported functions excluded), matching the numbering a
// ModuleMiddleware needs to generate per-function state.
type LocalFunctionIndex uint32

// Operator is one decoded Wasm instruction. Decoding itself happens
// outside this package; Operator is the payload a RawReader hands to
// the chain and the chain hands back.
// Code and Immediate are opaque to the reader and every stage that
// doesn't specifically care about this operator's meaning.
type Operator struct {
	Code      uint32
	Immediate []byte
}

// AbortError carries the human-readable reason a FunctionMiddleware
// stage gives for refusing to continue. A stage returns it from Feed,
// and Reader.ReadOperator hands it back to the caller unchanged.
type AbortError struct {
	Stage  string
	Reason string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("middleware: stage %q aborted: %s", e.Stage, e.Reason)
}

// ErrChainLocked is returned by SetChain once ReadOperator has been
// called at least once: replacing the chain mid-function is forbidden.
var ErrChainLocked = errors.New("middleware: cannot replace chain after the first ReadOperator call")

// ModuleInfo is the subset of module metadata a ModuleMiddleware may
// rewrite in its one pre-pass, before any per-function generation
// begins.
type ModuleInfo struct {
	Imports            []api.ImportType
	FunctionSignatures []api.FunctionType
}

// ModuleMiddleware generates per-function FunctionMiddleware instances
// and may rewrite module-wide metadata in a single pre-pass.
//
// GenerateFunctionMiddleware must be safe to call concurrently from
// multiple compilation threads: implementations must expose only
// immutable state through it. The FunctionMiddleware instances it
// returns are not required to be concurrency-safe themselves — each is
// used by exactly one compilation worker, for exactly one function,
// from creation to completion.
type ModuleMiddleware interface {
	GenerateFunctionMiddleware(idx LocalFunctionIndex) FunctionMiddleware

	// TransformModuleInfo rewrites info in place. Called once, before
	// any GenerateFunctionMiddleware call for this module.
	TransformModuleInfo(info *ModuleInfo) error
}

// NoopModuleInfo is embedded by ModuleMiddleware implementations that
// have nothing to rewrite at the module level.
type NoopModuleInfo struct{}

// TransformModuleInfo implements ModuleMiddleware.
func (NoopModuleInfo) TransformModuleInfo(*ModuleInfo) error { return nil }

// FunctionMiddleware is a single stage, specialized to one function, in
// a MiddlewareReader's chain.
type FunctionMiddleware interface {
	// LocalsInfo is called exactly once, before the first Feed call,
	// even when the function declares zero locals.
	LocalsInfo(locals []api.Type)

	// Feed consumes one upstream operator and pushes zero or more
	// output operators onto state. The default behavior for a stage
	// that implements pass-through is state.Push(op).
	Feed(op Operator, state *ReaderState) error
}

// PassThrough is a FunctionMiddleware that leaves LocalsInfo a no-op and
// Feed a pure pass-through; embed it to get that default stage behavior
// for free.
type PassThrough struct{}

// LocalsInfo implements FunctionMiddleware.
func (PassThrough) LocalsInfo([]api.Type) {}

// Feed implements FunctionMiddleware.
func (PassThrough) Feed(op Operator, state *ReaderState) error {
	state.Push(op)
	return nil
}

// Chain generates a per-function stage list from a prototype module
// middleware list, and applies the module-level pre-pass for all of
// them in order.
type Chain []ModuleMiddleware

// ApplyOnModuleInfo runs TransformModuleInfo for each middleware in
// order, failing fast on the first error.
func (c Chain) ApplyOnModuleInfo(info *ModuleInfo) error {
	for _, m := range c {
		if err := m.TransformModuleInfo(info); err != nil {
			return err
		}
	}
	return nil
}

// GenerateFunctionMiddlewareChain builds the per-function stage list for
// idx, one FunctionMiddleware per entry in c, in order.
func (c Chain) GenerateFunctionMiddlewareChain(idx LocalFunctionIndex) []FunctionMiddleware {
	stages := make([]FunctionMiddleware, len(c))
	for i, m := range c {
		stages[i] = m.GenerateFunctionMiddleware(idx)
	}
	return stages
}
