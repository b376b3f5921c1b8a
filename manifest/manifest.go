// Package manifest parses the webc-style package manifest: atoms,
// commands, filesystem volume mappings, and dependency constraints.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Atom is one named byte-addressable blob declared by a manifest. The
// bytes themselves live in the container; the manifest only carries
// the declared SHA-256 signature used to verify them once loaded.
type Atom struct {
	Name      string
	Kind      string
	Signature string // "sha256:<base64>", as declared in the raw manifest
}

// Command binds a name to a runner and the runner's free-form
// annotations (e.g. {"wasi": {"atom": "...", "main_args": [...]}}).
type Command struct {
	Name        string
	Runner      string
	Annotations json.RawMessage
}

// FileSystemMapping overlays one volume onto a mount path in the
// assembled virtual filesystem. DependencyName is non-empty when the
// volume is re-exported from a dependency rather than the package
// itself.
type FileSystemMapping struct {
	VolumeName     string
	MountPath      string
	OriginalPath   string
	DependencyName string
}

// Dependency is one entry of a package's declared dependency list: a
// full registry name paired with a semver constraint.
type Dependency struct {
	Name       string
	Constraint *semver.Constraints
}

// PackageInfo is the resolver-facing view of a manifest: everything
// needed to compute a dependency DAG and a filesystem overlay, without
// the atom bytes themselves.
type PackageInfo struct {
	Name         string
	Version      *semver.Version
	Dependencies []Dependency
	Commands     []Command
	Entrypoint   string // empty if the manifest declares none
	Filesystem   []FileSystemMapping
	Atoms        []Atom
}

// rawManifest mirrors the webc JSON manifest shape. Field names follow
// the wire format, not Go convention.
type rawManifest struct {
	Atoms   map[string]rawAtom `json:"atoms"`
	Package struct {
		Wapm struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"wapm"`
		Dependencies map[string]string `json:"dependencies"`
	} `json:"package"`
	Commands   map[string]rawCommand `json:"commands"`
	Entrypoint *string               `json:"entrypoint"`
	FS         map[string]string     `json:"fs"`
}

type rawAtom struct {
	Kind      string `json:"kind"`
	Signature string `json:"signature"`
}

type rawCommand struct {
	Runner      string          `json:"runner"`
	Annotations json.RawMessage `json:"annotations"`
}

// Parse decodes raw webc manifest JSON into a PackageInfo. Decoding is
// forgiving: a missing or malformed dependency constraint is dropped
// with an error returned only if the package's own name/version is
// unparseable — those two fields are load-bearing for every downstream
// operation (PackageId, cache keys, ModuleHash fallback).
func Parse(data []byte) (PackageInfo, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return PackageInfo{}, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	return FromRaw(raw)
}

func FromRaw(raw rawManifest) (PackageInfo, error) {
	if raw.Package.Wapm.Name == "" {
		return PackageInfo{}, fmt.Errorf("manifest: missing package.wapm.name")
	}
	version, err := semver.NewVersion(raw.Package.Wapm.Version)
	if err != nil {
		return PackageInfo{}, fmt.Errorf("manifest: invalid package version %q: %w", raw.Package.Wapm.Version, err)
	}

	info := PackageInfo{
		Name:    raw.Package.Wapm.Name,
		Version: version,
	}

	for name, c := range raw.Package.Dependencies {
		constraint, err := semver.NewConstraint(c)
		if err != nil {
			continue // forgiving: a malformed dependency constraint is dropped, not fatal
		}
		info.Dependencies = append(info.Dependencies, Dependency{Name: name, Constraint: constraint})
	}

	for name, atom := range raw.Atoms {
		info.Atoms = append(info.Atoms, Atom{Name: name, Kind: atom.Kind, Signature: atom.Signature})
	}

	for name, cmd := range raw.Commands {
		info.Commands = append(info.Commands, Command{Name: name, Runner: cmd.Runner, Annotations: cmd.Annotations})
	}

	if raw.Entrypoint != nil {
		info.Entrypoint = *raw.Entrypoint
	} else if len(info.Commands) == 1 {
		// Entrypoint inference: a package with exactly one command and no
		// explicit entrypoint resolves to that command.
		info.Entrypoint = info.Commands[0].Name
	}

	for volume, path := range raw.FS {
		info.Filesystem = append(info.Filesystem, FileSystemMapping{
			VolumeName:   volume,
			MountPath:    volume,
			OriginalPath: path,
		})
	}
	if len(info.Filesystem) == 0 && len(info.Atoms) > 0 {
		// Every atom-only package exposes its own atom volume at the
		// filesystem root, matching the default single-atom manifest shape.
		info.Filesystem = append(info.Filesystem, FileSystemMapping{VolumeName: "atom", MountPath: "/", OriginalPath: "/"})
	}

	return info, nil
}
