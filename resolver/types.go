// Package resolver implements package discovery (Source / WapmSource)
// and dependency version resolution (Resolver) over a manifest.PackageInfo
// dependency graph.
package resolver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Masterminds/semver/v3"
	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

// PackageId identifies one resolved (name, version) pair. It is the
// resolver's cycle-detection memo key and the module cache's logical
// package identity.
type PackageId struct {
	Name    string
	Version *semver.Version
}

func (id PackageId) String() string { return fmt.Sprintf("%s@%s", id.Name, id.Version) }

// SpecifierKind discriminates a PackageSpecifier.
type SpecifierKind byte

const (
	SpecifierPath SpecifierKind = iota
	SpecifierDirectory
	SpecifierURL
	SpecifierRegistry
)

// PackageSpecifier is a tagged union over the four ways a package can
// be referenced. Only the fields named by Kind are meaningful.
type PackageSpecifier struct {
	Kind SpecifierKind

	Path      string   // SpecifierPath: a single container file on disk
	Directory string   // SpecifierDirectory: a directory holding a manifest
	URL       *url.URL // SpecifierURL: a remote container URL

	FullName          string               // SpecifierRegistry: "namespace/name"
	VersionConstraint *semver.Constraints // SpecifierRegistry
}

func (s PackageSpecifier) String() string {
	switch s.Kind {
	case SpecifierPath:
		return s.Path
	case SpecifierDirectory:
		return s.Directory
	case SpecifierURL:
		return s.URL.String()
	case SpecifierRegistry:
		return fmt.Sprintf("%s@%s", s.FullName, s.VersionConstraint)
	default:
		return "unknown specifier"
	}
}

// DistributionInfo locates the downloadable bytes for one PackageSummary.
type DistributionInfo struct {
	Webc       *url.URL
	WebcSHA256 cache.ModuleHash
}

// PackageSummary is one candidate version a Source returns for a query.
type PackageSummary struct {
	Pkg  manifest.PackageInfo
	Dist DistributionInfo
}

// PackageId derives this summary's PackageId from its PackageInfo.
func (s PackageSummary) PackageId() PackageId {
	return PackageId{Name: s.Pkg.Name, Version: s.Pkg.Version}
}

// QueryErrorKind discriminates a QueryError.
type QueryErrorKind byte

const (
	// Unsupported means this Source does not understand the specifier's
	// kind at all (e.g. a filesystem Source given a registry specifier).
	Unsupported QueryErrorKind = iota
	NotFound
	// NoMatches means the package exists but no version satisfies the
	// constraint; ArchivedVersions lists versions skipped because they
	// were archived, for a more helpful error message.
	NoMatches
	Registry
	Other
)

// QueryError is the tagged-union error Source.Query returns.
type QueryError struct {
	Kind             QueryErrorKind
	ArchivedVersions []*semver.Version
	Err              error
}

func (e *QueryError) Error() string {
	switch e.Kind {
	case Unsupported:
		return "resolver: specifier not supported by this source"
	case NotFound:
		return "resolver: package not found"
	case NoMatches:
		return fmt.Sprintf("resolver: no version satisfies the constraint (%d archived version(s) skipped)", len(e.ArchivedVersions))
	case Registry:
		return fmt.Sprintf("resolver: registry error: %v", e.Err)
	default:
		return fmt.Sprintf("resolver: %v", e.Err)
	}
}

func (e *QueryError) Unwrap() error { return e.Err }

// Source discovers candidate versions for a package specifier.
type Source interface {
	Query(ctx context.Context, specifier PackageSpecifier) ([]PackageSummary, error)
}
