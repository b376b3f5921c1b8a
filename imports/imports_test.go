package imports

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-runtime-go/api"
	"github.com/wasmerio/wasmer-runtime-go/bridge"
)

func TestImports_Define_LastWriteWins(t *testing.T) {
	im := New()
	h1, _ := bridge.NewHostFunction(func() int32 { return 1 })
	h2, _ := bridge.NewHostFunction(func() int32 { return 2 })
	im.Define("env", "f", api.NewFunctionExtern(h1))
	im.Define("env", "f", api.NewFunctionExtern(h2))

	require.Equal(t, 1, im.Len())
	e, ok := im.Get("env", "f")
	require.True(t, ok)
	fn, _ := e.Function()
	results, err := fn.Call(nil)
	require.NoError(t, err)
	require.Equal(t, int32(2), results[0].I32())
}

type stubModule struct{ imports []api.ImportType }

func (m stubModule) ImportTypes() []api.ImportType { return m.imports }

type stubNamespace map[string]bridge.RawExtern

func (n stubNamespace) Members() []string {
	names := make([]string, 0, len(n))
	for k := range n {
		names = append(names, k)
	}
	return names
}
func (n stubNamespace) Lookup(name string) (bridge.RawExtern, bool) {
	r, ok := n[name]
	return r, ok
}

type stubObject map[string]stubNamespace

func (o stubObject) Namespaces() []string {
	names := make([]string, 0, len(o))
	for k := range o {
		names = append(names, k)
	}
	return names
}
func (o stubObject) Namespace(name string) (BackendNamespace, bool) {
	ns, ok := o[name]
	return ns, ok
}

func TestFrom_BindsDeclaredImports(t *testing.T) {
	h, err := bridge.NewHostFunction(func(a int32) int32 { return a * 2 })
	require.NoError(t, err)

	mod := stubModule{imports: []api.ImportType{
		{Module: "env", Name: "double", Type: api.FuncExternType(api.FunctionType{Params: []api.Type{api.TypeI32}, Results: []api.Type{api.TypeI32}})},
	}}
	obj := stubObject{"env": stubNamespace{"double": bridge.RawExtern{Kind: api.ExternKindFunc, Handle: h}}}

	im, err := From(mod, obj, bridge.NativeExternBridge{})
	require.NoError(t, err)
	e, ok := im.Get("env", "double")
	require.True(t, ok)
	fn, _ := e.Function()
	results, err := fn.Call([]api.Value{api.I32Value(21)})
	require.NoError(t, err)
	require.Equal(t, int32(42), results[0].I32())
}

func TestFrom_MissingNamespace(t *testing.T) {
	mod := stubModule{imports: []api.ImportType{
		{Module: "env", Name: "missing", Type: api.FuncExternType(api.FunctionType{})},
	}}
	_, err := From(mod, stubObject{}, bridge.NativeExternBridge{})

	var missing *MissingImportError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "env", missing.Namespace)
}

func TestFrom_MissingMember(t *testing.T) {
	mod := stubModule{imports: []api.ImportType{
		{Module: "env", Name: "missing", Type: api.FuncExternType(api.FunctionType{})},
	}}
	obj := stubObject{"env": stubNamespace{}}
	_, err := From(mod, obj, bridge.NativeExternBridge{})

	var missing *MissingImportError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "missing", missing.Name)
}

func TestFrom_KindMismatchSurfacesFromExternBridge(t *testing.T) {
	mod := stubModule{imports: []api.ImportType{
		{Module: "env", Name: "mem", Type: api.MemoryExternType(api.MemoryType{})},
	}}
	h, _ := bridge.NewHostFunction(func() {})
	obj := stubObject{"env": stubNamespace{"mem": bridge.RawExtern{Kind: api.ExternKindFunc, Handle: h}}}

	_, err := From(mod, obj, bridge.NativeExternBridge{})
	var mismatch *bridge.TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
}
