// Package command selects and describes how to run one
// manifest.Command: which runner understands its annotations, and (for
// Emscripten) how to parse its dynamic invoke_* dispatch functions.
package command

import (
	"fmt"
	"strings"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

// RunnerKind discriminates the runner a Command names.
type RunnerKind byte

const (
	RunnerWCGI RunnerKind = iota
	RunnerWASI
	RunnerEmscripten
)

func (k RunnerKind) String() string {
	switch k {
	case RunnerWCGI:
		return "wcgi"
	case RunnerWASI:
		return "wasi"
	case RunnerEmscripten:
		return "emscripten"
	default:
		return fmt.Sprintf("runner(%d)", byte(k))
	}
}

// UnsupportedRunnerError reports a Command naming a runner this package
// does not know how to run.
type UnsupportedRunnerError struct {
	Runner string
}

func (e *UnsupportedRunnerError) Error() string {
	return fmt.Sprintf("command: unsupported runner %q", e.Runner)
}

// Select picks a RunnerKind for a Command's declared runner string using
// a linear match: WCGI, then WASI, then Emscripten. The match is on a
// substring of the fully qualified runner URI
// (e.g. "https://webc.org/runner/wcgi") the same way the manifest names
// runners, not an exact string, since real manifests carry a versioned
// URI rather than a bare keyword.
func Select(runner string) (RunnerKind, error) {
	lower := strings.ToLower(runner)
	switch {
	case strings.Contains(lower, "wcgi"):
		return RunnerWCGI, nil
	case strings.Contains(lower, "wasi"):
		return RunnerWASI, nil
	case strings.Contains(lower, "emscripten"):
		return RunnerEmscripten, nil
	default:
		return 0, &UnsupportedRunnerError{Runner: runner}
	}
}

// FunctionNotifyMemoryGrowth is the host import Emscripten modules call
// after growing linear memory, so the host can re-synchronize any
// memory views it cached.
const FunctionNotifyMemoryGrowth = "emscripten_notify_memory_growth"

// InvokePrefix is the naming convention Emscripten uses for its dynamic
// call trampolines: invoke_<sig>, where <sig> encodes the signature of
// the funcref being called indirectly.
const InvokePrefix = "invoke_"

// InvokeSignature is a parsed invoke_<sig> name: the result type (if
// any) and parameter types of the funcref such a call dispatches to.
// Every invoke_ function itself additionally takes a leading i32 table
// index parameter, which is not part of this signature — it identifies
// the funcref to call, not a parameter of the call.
type InvokeSignature struct {
	Result *api.Type // nil means no result ('v')
	Params []api.Type
}

// ParseInvokeName parses an Emscripten invoke_<sig> import name into the
// signature of the indirect call it dispatches. The first character
// after the prefix names the result type: 'v' for none, 'i' for i32.
// Every following character is an i32 parameter — Emscripten's invoke_
// trampolines only ever carry i32 slots, since non-i32 arguments are
// already boxed/passed through linear memory by the caller.
func ParseInvokeName(name string) (InvokeSignature, error) {
	if !strings.HasPrefix(name, InvokePrefix) {
		return InvokeSignature{}, fmt.Errorf("command: %q is not an emscripten invoke_ function", name)
	}
	sig := strings.TrimPrefix(name, InvokePrefix)
	if len(sig) == 0 {
		return InvokeSignature{}, fmt.Errorf("command: %q has no signature suffix", name)
	}

	var parsed InvokeSignature
	switch sig[0] {
	case 'v':
		// no result
	case 'i':
		t := api.TypeI32
		parsed.Result = &t
	default:
		return InvokeSignature{}, fmt.Errorf("command: %q has unsupported result code %q", name, sig[0])
	}

	for _, c := range sig[1:] {
		if c != 'i' {
			return InvokeSignature{}, fmt.Errorf("command: %q has unsupported parameter code %q", name, c)
		}
		parsed.Params = append(parsed.Params, api.TypeI32)
	}
	return parsed, nil
}

// FunctionType renders sig as the api.FunctionType of the invoke_
// trampoline itself: the leading table-index parameter plus sig's
// parameters, returning sig's result.
func (sig InvokeSignature) FunctionType() api.FunctionType {
	ft := api.FunctionType{Params: append([]api.Type{api.TypeI32}, sig.Params...)}
	if sig.Result != nil {
		ft.Results = []api.Type{*sig.Result}
	}
	return ft
}
