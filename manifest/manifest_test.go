package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const wasmerPackManifest = `{
  "atoms": {"wasmer-pack": {"kind": "https://webc.org/kind/wasm", "signature": "sha256:FesCIAS6URjrIAAyy4G5u5HjJjGQBLGmnafjHPHRvqo="}},
  "package": {"wapm": {"name": "wasmer/wasmer-pack-cli", "version": "0.7.0"}},
  "commands": {"wasmer-pack": {"runner": "https://webc.org/runner/wasi/command@unstable_", "annotations": {"wasi": {"atom": "wasmer-pack"}}}},
  "entrypoint": "wasmer-pack"
}`

func TestParse_BasicManifest(t *testing.T) {
	info, err := Parse([]byte(wasmerPackManifest))
	require.NoError(t, err)
	require.Equal(t, "wasmer/wasmer-pack-cli", info.Name)
	require.Equal(t, "0.7.0", info.Version.String())
	require.Len(t, info.Commands, 1)
	require.Equal(t, "wasmer-pack", info.Commands[0].Name)
	require.Equal(t, "wasmer-pack", info.Entrypoint)
}

func TestParse_EntrypointInference_SingleCommand(t *testing.T) {
	raw := `{
  "atoms": {"wasmer-pack": {"kind": "https://webc.org/kind/wasm", "signature": "sha256:x"}},
  "package": {"wapm": {"name": "wasmer/wasmer-pack-cli", "version": "0.7.0"}},
  "commands": {"wasmer-pack": {"runner": "r"}}
}`
	info, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "wasmer-pack", info.Entrypoint)
}

func TestParse_MultipleCommandsNoEntrypoint_LeavesEmpty(t *testing.T) {
	raw := `{
  "package": {"wapm": {"name": "pkg", "version": "1.0.0"}},
  "commands": {"a": {"runner": "r"}, "b": {"runner": "r"}}
}`
	info, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, "", info.Entrypoint)
}

func TestParse_MissingName_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"package": {"wapm": {"version": "1.0.0"}}}`))
	require.Error(t, err)
}

func TestParse_InvalidVersion_Errors(t *testing.T) {
	_, err := Parse([]byte(`{"package": {"wapm": {"name": "pkg", "version": "not-a-version"}}}`))
	require.Error(t, err)
}

func TestParse_MalformedDependencyConstraint_IsDropped(t *testing.T) {
	raw := `{
  "package": {"wapm": {"name": "pkg", "version": "1.0.0"}, "dependencies": {"good/dep": "^1.0", "bad/dep": "not-a-constraint"}}
}`
	info, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, info.Dependencies, 1)
	require.Equal(t, "good/dep", info.Dependencies[0].Name)
}

func TestParse_DefaultAtomVolume(t *testing.T) {
	raw := `{
  "atoms": {"main": {"kind": "https://webc.org/kind/wasm", "signature": "sha256:x"}},
  "package": {"wapm": {"name": "pkg", "version": "1.0.0"}}
}`
	info, err := Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, info.Filesystem, 1)
	require.Equal(t, "atom", info.Filesystem[0].VolumeName)
	require.Equal(t, "/", info.Filesystem[0].MountPath)
}
