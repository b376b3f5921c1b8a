package vfs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

func TestMount_MapsVolumeToMountPath(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/file.txt", []byte("Hello, World!"), 0o644))

	merged, err := Mount(
		[]manifest.FileSystemMapping{{VolumeName: "out", MountPath: "/public"}},
		[]Volume{{Name: "out", FS: src}},
	)
	require.NoError(t, err)

	data, err := afero.ReadFile(merged, "/public/file.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", string(data))
}

func TestMount_UnknownVolume_Errors(t *testing.T) {
	_, err := Mount([]manifest.FileSystemMapping{{VolumeName: "missing", MountPath: "/"}}, nil)
	require.Error(t, err)
}

func TestMount_DefaultAtomVolumeAtRoot(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/main.wasm", []byte("binary"), 0o644))

	merged, err := Mount(
		[]manifest.FileSystemMapping{{VolumeName: "atom", MountPath: "/"}},
		[]Volume{{Name: "atom", FS: src}},
	)
	require.NoError(t, err)

	data, err := afero.ReadFile(merged, "/main.wasm")
	require.NoError(t, err)
	require.Equal(t, "binary", string(data))
}

func TestCleanMountPath(t *testing.T) {
	require.Equal(t, "/", CleanMountPath(""))
	require.Equal(t, "/public", CleanMountPath("public"))
	require.Equal(t, "/public", CleanMountPath("/public/"))
}
