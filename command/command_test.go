package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wasmerio/wasmer-runtime-go/api"
)

func TestSelect_LinearMatch(t *testing.T) {
	cases := []struct {
		runner string
		want   RunnerKind
	}{
		{"https://webc.org/runner/wcgi", RunnerWCGI},
		{"https://webc.org/runner/wasi", RunnerWASI},
		{"https://webc.org/runner/emscripten", RunnerEmscripten},
	}
	for _, tc := range cases {
		got, err := Select(tc.runner)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
}

func TestSelect_Unsupported(t *testing.T) {
	_, err := Select("https://webc.org/runner/unknown")
	require.Error(t, err)
	var unsupported *UnsupportedRunnerError
	require.ErrorAs(t, err, &unsupported)
}

func TestParseInvokeName_NoResultNoParams(t *testing.T) {
	sig, err := ParseInvokeName("invoke_v")
	require.NoError(t, err)
	require.Nil(t, sig.Result)
	require.Empty(t, sig.Params)
}

func TestParseInvokeName_ResultAndParams(t *testing.T) {
	sig, err := ParseInvokeName("invoke_iiiii")
	require.NoError(t, err)
	require.NotNil(t, sig.Result)
	require.Equal(t, api.TypeI32, *sig.Result)
	require.Len(t, sig.Params, 4)

	ft := sig.FunctionType()
	require.Len(t, ft.Params, 5) // table index + 4 params
	require.Equal(t, []api.Type{api.TypeI32}, ft.Results)
}

func TestParseInvokeName_RejectsNonInvoke(t *testing.T) {
	_, err := ParseInvokeName("emscripten_notify_memory_growth")
	require.Error(t, err)
}

func TestParseInvokeName_RejectsUnsupportedCode(t *testing.T) {
	_, err := ParseInvokeName("invoke_f")
	require.Error(t, err)
}
