package bridge

import (
	"fmt"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

// TypeMismatchError is returned when a backend value's reported kind
// does not match the ExternType kind the caller expected. It is a kind
// check only — a full signature-equivalence check happens later, at
// instantiation, by the engine.
type TypeMismatchError struct {
	Expected api.ExternKind
	Found    api.ExternKind
	Raw      string // human-readable description of the raw backend value
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("bridge: extern kind mismatch: expected %v, found %v (%s)", e.Expected, e.Found, e.Raw)
}

// RawExtern is a backend's untyped view of one of its own externs: a
// handle plus the kind the backend itself reports for it (independent
// of what ExternBridge's caller expects).
type RawExtern struct {
	Kind        api.ExternKind
	Handle      any // backend-specific; passed straight to the kind-specific constructor below
	Description string
}

// ExternBridge converts between a backend's native handle
// representation and api.Extern, for each of the four extern kinds.
// FromBackend performs a kind check — not a full signature check.
type ExternBridge interface {
	ToBackend(e api.Extern) (any, error)
	FromBackend(raw RawExtern, expected api.ExternKind) (api.Extern, error)
}

// NativeExternBridge is the native-VM ExternBridge: backend handles are
// assumed to already satisfy the corresponding api.*Handle interface, so
// conversion is a type assertion plus a kind check; a full signature
// check happens later, at instantiation.
type NativeExternBridge struct{}

// ToBackend implements ExternBridge.
func (NativeExternBridge) ToBackend(e api.Extern) (any, error) {
	switch e.Kind {
	case api.ExternKindFunc:
		h, _ := e.Function()
		return h, nil
	case api.ExternKindMemory:
		h, _ := e.Memory()
		return h, nil
	case api.ExternKindGlobal:
		h, _ := e.Global()
		return h, nil
	case api.ExternKindTable:
		h, _ := e.Table()
		return h, nil
	default:
		return nil, &UnsupportedError{What: fmt.Sprintf("extern kind %v", e.Kind)}
	}
}

// FromBackend implements ExternBridge.
func (NativeExternBridge) FromBackend(raw RawExtern, expected api.ExternKind) (api.Extern, error) {
	if raw.Kind != expected {
		return api.Extern{}, &TypeMismatchError{Expected: expected, Found: raw.Kind, Raw: raw.Description}
	}
	switch expected {
	case api.ExternKindFunc:
		h, ok := raw.Handle.(api.FunctionHandle)
		if !ok {
			return api.Extern{}, &TypeMismatchError{Expected: expected, Found: raw.Kind, Raw: raw.Description}
		}
		return api.NewFunctionExtern(h), nil
	case api.ExternKindMemory:
		h, ok := raw.Handle.(api.MemoryHandle)
		if !ok {
			return api.Extern{}, &TypeMismatchError{Expected: expected, Found: raw.Kind, Raw: raw.Description}
		}
		return api.NewMemoryExtern(h), nil
	case api.ExternKindGlobal:
		h, ok := raw.Handle.(api.GlobalHandle)
		if !ok {
			return api.Extern{}, &TypeMismatchError{Expected: expected, Found: raw.Kind, Raw: raw.Description}
		}
		return api.NewGlobalExtern(h), nil
	case api.ExternKindTable:
		h, ok := raw.Handle.(api.TableHandle)
		if !ok {
			return api.Extern{}, &TypeMismatchError{Expected: expected, Found: raw.Kind, Raw: raw.Description}
		}
		return api.NewTableExtern(h), nil
	default:
		return api.Extern{}, &UnsupportedError{What: fmt.Sprintf("extern kind %v", expected)}
	}
}
