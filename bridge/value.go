// Package bridge implements the host/guest value and extern conversion
// discipline shared by every backend. Two backends exist — nativeVM
// (values pass through as their native bit representation) and js
// (values cross the boundary as double-precision floats) — modeled as
// one capability interface implemented twice, rather than a class
// hierarchy.
package bridge

import (
	"fmt"
	"math"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

// UnsupportedError is returned when a ValueBridge or ExternBridge is
// asked to convert a reference kind it does not support.
type UnsupportedError struct {
	What string
}

func (e *UnsupportedError) Error() string { return "bridge: unsupported: " + e.What }

// ValueBridge converts between the host's api.Value and a
// backend-specific wire representation. Conversions are total for
// scalar types (I32/I64/F32/F64/V128) and partial for references:
// FuncRef(nil) is the null reference, ExternRef is opaque and never
// convertible to a scalar.
type ValueBridge interface {
	// ToBackend converts a host Value into this backend's wire
	// representation.
	ToBackend(v api.Value) (any, error)

	// FromBackend converts a backend wire value, known statically to be
	// of type t, back into a host Value.
	FromBackend(raw any, t api.Type) (api.Value, error)
}

// NativeValueBridge is the native-VM backend: scalars pass through as
// their native bit pattern (uint64 for I32/I64/F32/F64, [2]uint64 for
// V128), with no widening.
type NativeValueBridge struct{}

// ToBackend implements ValueBridge.
func (NativeValueBridge) ToBackend(v api.Value) (any, error) {
	switch v.Type {
	case api.TypeI32, api.TypeI64, api.TypeF32, api.TypeF64:
		return v.RawBits(), nil
	case api.TypeV128:
		lo, hi := v.V128()
		return [2]uint64{lo, hi}, nil
	case api.TypeFuncRef:
		return v.FuncRef(), nil
	case api.TypeExternRef:
		return v.ExternRef(), nil
	default:
		return nil, &UnsupportedError{What: fmt.Sprintf("value type %v", v.Type)}
	}
}

// FromBackend implements ValueBridge.
func (NativeValueBridge) FromBackend(raw any, t api.Type) (api.Value, error) {
	switch t {
	case api.TypeI32:
		return api.I32Value(int32(raw.(uint64))), nil
	case api.TypeI64:
		return api.I64Value(int64(raw.(uint64))), nil
	case api.TypeF32:
		bits := uint32(raw.(uint64))
		return api.F32Value(math.Float32frombits(bits)), nil
	case api.TypeF64:
		return api.F64Value(math.Float64frombits(raw.(uint64))), nil
	case api.TypeV128:
		lanes := raw.([2]uint64)
		return api.V128Value(lanes[0], lanes[1]), nil
	case api.TypeFuncRef:
		return api.FuncRefValue(raw), nil
	case api.TypeExternRef:
		return api.ExternRefValue(raw), nil
	default:
		return api.Value{}, &UnsupportedError{What: fmt.Sprintf("value type %v", t)}
	}
}
