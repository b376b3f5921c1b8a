package bridge

import (
	"fmt"
	"math"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

// canonicalF32NaN and canonicalF64NaN are the bit patterns used to
// canonicalize a NaN payload that crosses the JS boundary. float64
// cannot exactly round-trip every f32 NaN payload (a double has more
// mantissa bits than a float has, so widening and narrowing again can
// perturb bits outside the quiet-NaN marker); rather than leak a
// platform- or conversion-dependent payload to the guest, every NaN is
// normalized to its type's canonical quiet NaN. This mirrors the
// Wasm-compatible NaN handling wazero's internal/moremath applies to
// min/max.
const (
	canonicalF32NaN = uint32(0x7fc00000)
	canonicalF64NaN = uint64(0x7ff8000000000000)
)

// JSValueBridge is the browser-embedded backend: I32/I64/F32/F64 are
// represented as a double-precision float at the host/JS boundary.
// V128 is not representable as an f64 and requires 128-bit-safe
// transport, so it is carried as a pair of uint64 lanes exactly like
// the native backend.
type JSValueBridge struct{}

// ToBackend implements ValueBridge.
func (JSValueBridge) ToBackend(v api.Value) (any, error) {
	switch v.Type {
	case api.TypeI32:
		return float64(v.I32()), nil
	case api.TypeI64:
		// JS doubles cannot exactly represent the full int64 range;
		// this backend accepts the precision loss above 2^53 the same
		// way every i64-via-f64 JS embedding does.
		return float64(v.I64()), nil
	case api.TypeF32:
		f := v.F32()
		if math.IsNaN(float64(f)) {
			f = math.Float32frombits(canonicalF32NaN)
		}
		return float64(f), nil
	case api.TypeF64:
		f := v.F64()
		if math.IsNaN(f) {
			f = math.Float64frombits(canonicalF64NaN)
		}
		return f, nil
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
func (JSValueBridge) FromBackend(raw any, t api.Type) (api.Value, error) {
	switch t {
	case api.TypeI32:
		return api.I32Value(int32(raw.(float64))), nil
	case api.TypeI64:
		return api.I64Value(int64(raw.(float64))), nil
	case api.TypeF32:
		f := float32(raw.(float64))
		if math.IsNaN(float64(f)) {
			f = math.Float32frombits(canonicalF32NaN)
		}
		return api.F32Value(f), nil
	case api.TypeF64:
		f := raw.(float64)
		if math.IsNaN(f) {
			f = math.Float64frombits(canonicalF64NaN)
		}
		return api.F64Value(f), nil
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
