package bridge

import (
	"fmt"
	"reflect"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// NewHostFunction adapts an arbitrary Go function value into an
// api.FunctionHandle callable with api.Value parameters, so a host
// import can be written as ordinary Go (func(int32, int32) int32)
// rather than against the api.Value vocabulary directly. This mirrors
// the reflect.MakeFunc technique the native engine uses to bind Go
// functions to Wasm calls, run in the opposite direction: here a Go
// function is the ultimate callee, not the caller.
//
// goFn's final result may optionally be an error; if goFn panics or
// returns a non-nil error, Call returns that error. Every parameter and
// every non-error result must be one of int32, int64, uint32, uint64,
// float32, or float64.
func NewHostFunction(goFn any) (api.FunctionHandle, error) {
	fv := reflect.ValueOf(goFn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("bridge: NewHostFunction: %T is not a function", goFn)
	}
	ft := fv.Type()

	params := make([]api.Type, ft.NumIn())
	for i := range params {
		t, err := goKindToType(ft.In(i).Kind())
		if err != nil {
			return nil, fmt.Errorf("bridge: NewHostFunction: param %d: %w", i, err)
		}
		params[i] = t
	}

	numOut := ft.NumOut()
	hasErrorResult := numOut > 0 && ft.Out(numOut-1) == errorType
	resultCount := numOut
	if hasErrorResult {
		resultCount--
	}
	if resultCount > 1 {
		return nil, fmt.Errorf("bridge: NewHostFunction: at most one non-error result is supported, got %d", resultCount)
	}
	results := make([]api.Type, resultCount)
	for i := range results {
		t, err := goKindToType(ft.Out(i).Kind())
		if err != nil {
			return nil, fmt.Errorf("bridge: NewHostFunction: result %d: %w", i, err)
		}
		results[i] = t
	}

	return &hostFunction{
		fn:             fv,
		sig:            api.FunctionType{Params: params, Results: results},
		hasErrorResult: hasErrorResult,
	}, nil
}

func goKindToType(k reflect.Kind) (api.Type, error) {
	switch k {
	case reflect.Int32, reflect.Uint32:
		return api.TypeI32, nil
	case reflect.Int64, reflect.Uint64:
		return api.TypeI64, nil
	case reflect.Float32:
		return api.TypeF32, nil
	case reflect.Float64:
		return api.TypeF64, nil
	default:
		return 0, fmt.Errorf("unsupported Go kind %s", k)
	}
}

// hostFunction implements api.FunctionHandle by reflectively invoking a
// host-provided Go function.
type hostFunction struct {
	fn             reflect.Value
	sig            api.FunctionType
	hasErrorResult bool
}

func (h *hostFunction) Type() api.FunctionType { return h.sig }

func (h *hostFunction) Call(params []api.Value) (results []api.Value, err error) {
	if len(params) != len(h.sig.Params) {
		return nil, fmt.Errorf("bridge: host function: expected %d params, got %d", len(h.sig.Params), len(params))
	}

	args := make([]reflect.Value, len(params))
	for i, p := range params {
		args[i] = valueToReflect(p, h.fn.Type().In(i).Kind())
	}

	// A host function is foreign code; convert a panic into an error the
	// same way the native engine's own call path would for a guest trap.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: host function panicked: %v", r)
		}
	}()

	out := h.fn.Call(args)

	if h.hasErrorResult {
		if e, ok := out[len(out)-1].Interface().(error); ok && e != nil {
			return nil, e
		}
		out = out[:len(out)-1]
	}

	if len(out) == 0 {
		return nil, nil
	}
	return []api.Value{reflectToValue(out[0], h.sig.Results[0])}, nil
}

func valueToReflect(v api.Value, k reflect.Kind) reflect.Value {
	switch k {
	case reflect.Int32:
		return reflect.ValueOf(v.I32())
	case reflect.Uint32:
		return reflect.ValueOf(uint32(v.I32()))
	case reflect.Int64:
		return reflect.ValueOf(v.I64())
	case reflect.Uint64:
		return reflect.ValueOf(uint64(v.I64()))
	case reflect.Float32:
		return reflect.ValueOf(v.F32())
	case reflect.Float64:
		return reflect.ValueOf(v.F64())
	default:
		panic(fmt.Errorf("bridge: BUG: unhandled reflect kind %s", k))
	}
}

func reflectToValue(rv reflect.Value, t api.Type) api.Value {
	switch t {
	case api.TypeI32:
		if rv.Kind() == reflect.Uint32 {
			return api.I32Value(int32(rv.Uint()))
		}
		return api.I32Value(int32(rv.Int()))
	case api.TypeI64:
		if rv.Kind() == reflect.Uint64 {
			return api.I64Value(int64(rv.Uint()))
		}
		return api.I64Value(rv.Int())
	case api.TypeF32:
		return api.F32Value(float32(rv.Float()))
	case api.TypeF64:
		return api.F64Value(rv.Float())
	default:
		panic(fmt.Errorf("bridge: BUG: unhandled result type %v", t))
	}
}
