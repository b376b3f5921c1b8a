package bridge

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-runtime-go/api"
)

func TestNativeValueBridge_RoundTrip(t *testing.T) {
	var b NativeValueBridge
	cases := []api.Value{
		api.I32Value(-7),
		api.I64Value(1 << 40),
		api.F32Value(3.5),
		api.F64Value(-2.25),
	}
	for _, v := range cases {
		raw, err := b.ToBackend(v)
		require.NoError(t, err)
		got, err := b.FromBackend(raw, v.Type)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestNativeValueBridge_V128RoundTrip(t *testing.T) {
	var b NativeValueBridge
	v := api.V128Value(1, 2)
	raw, err := b.ToBackend(v)
	require.NoError(t, err)
	got, err := b.FromBackend(raw, api.TypeV128)
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestJSValueBridge_WidensToFloat64(t *testing.T) {
	var b JSValueBridge
	raw, err := b.ToBackend(api.I32Value(42))
	require.NoError(t, err)
	require.IsType(t, float64(0), raw)
	require.Equal(t, float64(42), raw)
}

func TestJSValueBridge_CanonicalizesNaN(t *testing.T) {
	var b JSValueBridge
	weirdNaN := math.Float32frombits(0x7fc00001)
	raw, err := b.ToBackend(api.F32Value(weirdNaN))
	require.NoError(t, err)

	got, err := b.FromBackend(raw, api.TypeF32)
	require.NoError(t, err)
	require.True(t, math.IsNaN(float64(got.F32())))
	require.Equal(t, uint32(0x7fc00000), math.Float32bits(got.F32()))
}

func TestExternBridge_KindMismatch(t *testing.T) {
	var eb NativeExternBridge
	raw := RawExtern{Kind: api.ExternKindMemory, Handle: fakeMemory{}, Description: "mem0"}
	_, err := eb.FromBackend(raw, api.ExternKindFunc)

	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, api.ExternKindFunc, mismatch.Expected)
	require.Equal(t, api.ExternKindMemory, mismatch.Found)
}

func TestExternBridge_FunctionRoundTrip(t *testing.T) {
	var eb NativeExternBridge
	h, err := NewHostFunction(func(a, b int32) int32 { return a + b })
	require.NoError(t, err)

	e, err := eb.FromBackend(RawExtern{Kind: api.ExternKindFunc, Handle: h}, api.ExternKindFunc)
	require.NoError(t, err)

	fn, ok := e.Function()
	require.True(t, ok)
	results, err := fn.Call([]api.Value{api.I32Value(2), api.I32Value(3)})
	require.NoError(t, err)
	require.Equal(t, int32(5), results[0].I32())
}

func TestNewHostFunction_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	h, err := NewHostFunction(func(a int32) (int32, error) { return 0, sentinel })
	require.NoError(t, err)

	_, callErr := h.Call([]api.Value{api.I32Value(1)})
	require.ErrorIs(t, callErr, sentinel)
}

func TestNewHostFunction_PanicBecomesError(t *testing.T) {
	h, err := NewHostFunction(func(a int32) int32 { panic("nope") })
	require.NoError(t, err)

	_, callErr := h.Call([]api.Value{api.I32Value(1)})
	require.Error(t, callErr)
}

type fakeMemory struct{}

func (fakeMemory) Type() api.MemoryType                               { return api.MemoryType{} }
func (fakeMemory) Size() uint32                                       { return 1 }
func (fakeMemory) Grow(uint32) (uint32, bool)                         { return 0, false }
func (fakeMemory) Read(offset, byteCount uint32) ([]byte, bool)       { return nil, false }
func (fakeMemory) Write(offset uint32, data []byte) bool              { return false }
