// Package loader implements PackageLoader: fetching and verifying a
// package's container bytes, then assembling a container plus its
// transitive dependencies into an executable BinaryPackage.
package loader

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

// Container is a parsed package file: its manifest plus the raw bytes
// of every named atom and filesystem volume it carries. The on-disk
// envelope is a JSON object with base64-encoded byte fields
// (encoding/json's default []byte handling), which keeps this module
// self-contained without needing a bespoke binary container format
// parser for the tar-like format webc-style registries serve.
type Container struct {
	Manifest manifest.PackageInfo
	Atoms    map[string][]byte
	Volumes  map[string]afero.Fs
}

type rawContainer struct {
	Manifest json.RawMessage              `json:"manifest"`
	Atoms    map[string][]byte            `json:"atoms"`
	Volumes  map[string]map[string][]byte `json:"volumes"` // volume name -> path -> file bytes
}

// ParseContainer decodes raw container bytes.
func ParseContainer(data []byte) (*Container, error) {
	var raw rawContainer
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loader: invalid container: %w", err)
	}

	info, err := manifest.Parse(raw.Manifest)
	if err != nil {
		return nil, fmt.Errorf("loader: invalid container manifest: %w", err)
	}

	volumes := make(map[string]afero.Fs, len(raw.Volumes))
	for name, files := range raw.Volumes {
		fs := afero.NewMemMapFs()
		for path, bytes := range files {
			if err := afero.WriteFile(fs, path, bytes, 0o644); err != nil {
				return nil, fmt.Errorf("loader: writing %q into volume %q: %w", path, name, err)
			}
		}
		volumes[name] = fs
	}

	return &Container{Manifest: info, Atoms: raw.Atoms, Volumes: volumes}, nil
}

// VerifySHA256 checks data's SHA-256 digest against the declared hash.
func VerifySHA256(data []byte, declared cache.ModuleHash) error {
	actual := cache.SHA256(data)
	if actual != declared {
		return &IntegrityError{Declared: declared, Actual: actual}
	}
	return nil
}

// IntegrityError reports a SHA-256 mismatch between declared and
// downloaded bytes.
type IntegrityError struct {
	Declared cache.ModuleHash
	Actual   cache.ModuleHash
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("loader: integrity check failed: declared %s, got %s", e.Declared, e.Actual)
}
