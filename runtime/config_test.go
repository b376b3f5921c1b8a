package runtime

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/wasmerio/wasmer-runtime-go/resolver"
)

func TestRuntimeConfig_WithMethodsReturnCopies(t *testing.T) {
	base := NewRuntimeConfig()
	networked := base.WithNetworking(NewStaticNetworking(TCPListener{Host: "0.0.0.0", Port: 8080}))

	require.Nil(t, base.networking)
	require.NotNil(t, networked.networking)
}

func TestRuntimeConfig_Build_DefaultsToRejectingNetworking(t *testing.T) {
	rt := NewRuntimeConfig().Build()

	_, err := rt.Networking.Listen(TCPListener{Host: "0.0.0.0", Port: 80})
	require.Error(t, err)
}

func TestRuntimeConfig_Build_WrapsWithMonitoring(t *testing.T) {
	factory := &countingHookFactory{}
	src := &fakeSource{}
	rt := NewRuntimeConfig().WithSource(src).WithMonitoring(factory).Build()

	_, _ = rt.Source.Query(context.Background(), resolver.PackageSpecifier{})
	require.Equal(t, 1, factory.before)
	require.Equal(t, 1, factory.after)
}

func TestRuntimeConfig_Build_SetsUpHTTPClient(t *testing.T) {
	rt := NewRuntimeConfig().Build()
	require.NotNil(t, rt.HTTPClient)
}

func TestModuleConfig_WithMethodsReturnCopies(t *testing.T) {
	base := NewModuleConfig()
	withArgs := base.WithArgs("a", "b")

	require.Empty(t, base.Args())
	require.Equal(t, []string{"a", "b"}, withArgs.Args())
}

func TestModuleConfig_EnvIsIsolatedAcrossClones(t *testing.T) {
	base := NewModuleConfig().WithEnv("FOO", "1")
	derived := base.WithEnv("BAR", "2")

	_, hasBarInBase := base.Env("BAR")
	require.False(t, hasBarInBase)

	foo, hasFoo := derived.Env("FOO")
	require.True(t, hasFoo)
	require.Equal(t, "1", foo)
}

func TestModuleConfig_StdioAndFS(t *testing.T) {
	var out bytes.Buffer
	fs := afero.NewMemMapFs()
	cfg := NewModuleConfig().
		WithStdin(strings.NewReader("input")).
		WithStdout(&out).
		WithFS(fs)

	require.Equal(t, fs, cfg.FS())
	require.NotNil(t, cfg.Stdin())
	require.Equal(t, &out, cfg.Stdout())
}
