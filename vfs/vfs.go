// Package vfs assembles the virtual filesystem overlays a BinaryPackage
// presents to the guest: one package's declared volumes, merged with
// every dependency's re-exported volumes, each mounted at its declared
// path.
package vfs

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/spf13/afero"

	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

// Volume is one named, already-materialized filesystem tree a package
// or dependency contributes — typically an in-memory tree built from
// container atom/volume bytes.
type Volume struct {
	Name string
	FS   afero.Fs
}

// Mount overlays volumes onto a single merged filesystem according to
// mappings, mounting each volume's subtree at its declared mount path.
// A later mapping with the same mount path shadows an earlier one: the
// topmost layer wins, the same copy-on-write overlay semantics
// afero.NewCopyOnWriteFs provides.
func Mount(mappings []manifest.FileSystemMapping, volumes []Volume) (afero.Fs, error) {
	byName := make(map[string]afero.Fs, len(volumes))
	for _, v := range volumes {
		byName[v.Name] = v.FS
	}

	root := afero.NewMemMapFs()
	for _, m := range mappings {
		src, ok := byName[m.VolumeName]
		if !ok {
			return nil, fmt.Errorf("vfs: mapping references unknown volume %q", m.VolumeName)
		}
		if err := copyInto(src, root, m.MountPath); err != nil {
			return nil, fmt.Errorf("vfs: mounting volume %q at %q: %w", m.VolumeName, m.MountPath, err)
		}
	}
	return root, nil
}

// copyInto walks every file in src and recreates it under dst at
// mountPath. This runs once at package-assembly time, not per guest
// syscall, so a plain walk-and-copy is simpler than a true
// copy-on-write layering and has no runtime cost once assembled.
func copyInto(src afero.Fs, dst afero.Fs, mountPath string) error {
	return afero.Walk(src, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		target := path.Join(mountPath, p)
		if info.IsDir() {
			return dst.MkdirAll(target, 0o755)
		}
		data, err := afero.ReadFile(src, p)
		if err != nil {
			return fmt.Errorf("reading %q: %w", p, err)
		}
		if err := dst.MkdirAll(path.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating parent of %q: %w", target, err)
		}
		return afero.WriteFile(dst, target, data, info.Mode())
	})
}

// Overlay mounts volumes according to mappings (see Mount) and layers
// the result over base with afero.NewCopyOnWriteFs, so mounted files
// shadow base files. FileSystemMapping.DependencyName is not consulted:
// a re-exported volume is mounted like any other.
func Overlay(base afero.Fs, mappings []manifest.FileSystemMapping, volumes []Volume) (afero.Fs, error) {
	overlay, err := Mount(mappings, volumes)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return overlay, nil
	}
	return afero.NewCopyOnWriteFs(base, overlay), nil
}

// CleanMountPath normalizes a declared mount path into an absolute,
// slash-separated path safe for afero use; an empty path becomes "/".
func CleanMountPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
