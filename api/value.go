package api

import "math"

// Value is a tagged union over the Wasm scalar types plus the two
// reference types. A Value carries no type independently of Type: Type
// IS the value's type. The zero Value is an I32 of 0.
//
// Conversions to/from this representation are total for scalar types
// and partial for references; see the bridge package.
type Value struct {
	Type Type

	bits uint64 // I32 (zero-extended into uint64), I64, F32/F64 bit pattern, low 64 bits of V128
	hi   uint64 // high 64 bits of V128, unused otherwise

	// ref holds the FuncRef handle (nil means the null function
	// reference) or the opaque ExternRef payload. Unused for scalar
	// types.
	ref any
}

// I32Value constructs a Value of Type I32.
func I32Value(v int32) Value { return Value{Type: TypeI32, bits: uint64(uint32(v))} }

// I64Value constructs a Value of Type I64.
func I64Value(v int64) Value { return Value{Type: TypeI64, bits: uint64(v)} }

// F32Value constructs a Value of Type F32.
func F32Value(v float32) Value { return Value{Type: TypeF32, bits: uint64(math.Float32bits(v))} }

// F64Value constructs a Value of Type F64.
func F64Value(v float64) Value { return Value{Type: TypeF64, bits: math.Float64bits(v)} }

// V128Value constructs a Value of Type V128 from its two 64-bit lanes.
func V128Value(lo, hi uint64) Value { return Value{Type: TypeV128, bits: lo, hi: hi} }

// NullFuncRefValue constructs the null function reference.
func NullFuncRefValue() Value { return Value{Type: TypeFuncRef} }

// FuncRefValue constructs a non-null function reference wrapping an
// opaque host function handle.
func FuncRefValue(handle any) Value { return Value{Type: TypeFuncRef, ref: handle} }

// ExternRefValue constructs an opaque external reference. ExternRef
// values are never convertible to a scalar.
func ExternRefValue(v any) Value { return Value{Type: TypeExternRef, ref: v} }

// I32 returns the I32 payload. Panics if Type != TypeI32.
func (v Value) I32() int32 { v.mustBe(TypeI32); return int32(uint32(v.bits)) }

// I64 returns the I64 payload. Panics if Type != TypeI64.
func (v Value) I64() int64 { v.mustBe(TypeI64); return int64(v.bits) }

// F32 returns the F32 payload. Panics if Type != TypeF32.
func (v Value) F32() float32 { v.mustBe(TypeF32); return math.Float32frombits(uint32(v.bits)) }

// F64 returns the F64 payload. Panics if Type != TypeF64.
func (v Value) F64() float64 { v.mustBe(TypeF64); return math.Float64frombits(v.bits) }

// V128 returns the two 64-bit lanes. Panics if Type != TypeV128.
func (v Value) V128() (lo, hi uint64) { v.mustBe(TypeV128); return v.bits, v.hi }

// IsNullFuncRef reports whether v is the null function reference.
// Panics if Type != TypeFuncRef.
func (v Value) IsNullFuncRef() bool { v.mustBe(TypeFuncRef); return v.ref == nil }

// FuncRef returns the function handle, or nil for the null reference.
// Panics if Type != TypeFuncRef.
func (v Value) FuncRef() any { v.mustBe(TypeFuncRef); return v.ref }

// ExternRef returns the opaque reference payload. Panics if
// Type != TypeExternRef.
func (v Value) ExternRef() any { v.mustBe(TypeExternRef); return v.ref }

func (v Value) mustBe(t Type) {
	if v.Type != t {
		panic("api: Value is " + v.Type.String() + ", not " + t.String())
	}
}

// RawBits returns the little-endian-significant 64-bit encoding used by
// scalar types, for backends that transport values as raw uint64s (the
// native-VM ValueBridge). It is meaningless for V128 and the reference
// types.
func (v Value) RawBits() uint64 { return v.bits }
