package resolver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

// Edge labels one dependency edge in a Resolution's DAG: the
// filesystem mappings the dependent re-exports from the dependency.
type Edge struct {
	DependencyName string
	Filesystem     []manifest.FileSystemMapping
}

// Resolution is the resolver's output: every selected PackageId mapped
// to its summary, plus the dependency edges between them.
type Resolution struct {
	Root  PackageId
	Nodes map[PackageId]PackageSummary
	Edges map[PackageId][]Edge
}

// ConstraintUnsatisfiableError reports that no candidate version
// satisfied every active constraint on a dependency path.
type ConstraintUnsatisfiableError struct {
	Path       []PackageId
	Constraint *semver.Constraints
	Candidates []*semver.Version
}

func (e *ConstraintUnsatisfiableError) Error() string {
	return fmt.Sprintf("resolver: no version of %s satisfies %s (path: %v)", e.Path[len(e.Path)-1].Name, e.Constraint, e.Path)
}

// CycleError reports a dependency cycle discovered during resolution.
type CycleError struct {
	Path []PackageId
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolver: dependency cycle: %v", e.Path)
}

// Resolver performs version-constraint satisfaction over a dependency
// DAG rooted at one manifest.PackageInfo, querying a Source for each
// dependency's candidate versions.
//
// Policy: among a dependency's candidates, pick (a) the highest semver
// satisfying every active constraint on it, (b) ties broken by newest
// version (there are none once (a) is applied, since semver ordering is
// total, but the two-step framing matches the source algorithm this is
// grounded on). Cycles are detected by PackageId memo. Resolution for
// one PackageId runs at most once per call even when required by
// multiple parents concurrently.
type Resolver struct {
	Source Source
	Logger *zap.Logger

	group singleflight.Group

	mu          sync.Mutex
	constraints map[string]*semver.Constraints
	resolved    map[string]PackageSummary
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// Resolve computes a Resolution for root.
func (r *Resolver) Resolve(ctx context.Context, rootID PackageId, root manifest.PackageInfo) (*Resolution, error) {
	res := &Resolution{
		Root:  rootID,
		Nodes: map[PackageId]PackageSummary{rootID: {Pkg: root}},
		Edges: map[PackageId][]Edge{},
	}
	var mu sync.Mutex

	r.mu.Lock()
	r.constraints = map[string]*semver.Constraints{}
	r.resolved = map[string]PackageSummary{}
	r.mu.Unlock()

	if err := r.resolveDeps(ctx, rootID, root, []PackageId{rootID}, res, &mu); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Resolver) resolveDeps(ctx context.Context, parentID PackageId, parent manifest.PackageInfo, path []PackageId, res *Resolution, mu *sync.Mutex) error {
	if len(parent.Dependencies) == 0 {
		return nil
	}

	// Siblings are resolved concurrently but not fail-fast: every
	// dependency is tried, and if more than one fails we want the caller
	// to see every rejection reason, not just whichever goroutine lost
	// the race to return first.
	g, gctx := errgroup.WithContext(ctx)
	var errsMu sync.Mutex
	var errs []error
	for _, dep := range parent.Dependencies {
		dep := dep
		g.Go(func() error {
			summary, childPath, err := r.resolveOne(gctx, dep, path)
			if err != nil {
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
				return nil
			}

			mu.Lock()
			childID := summary.PackageId()
			_, alreadyVisited := res.Nodes[childID]
			res.Nodes[childID] = summary
			res.Edges[parentID] = append(res.Edges[parentID], Edge{
				DependencyName: dep.Name,
				Filesystem:     summary.Pkg.Filesystem,
			})
			mu.Unlock()

			if alreadyVisited {
				return nil // already expanded by another branch of the DAG
			}
			if err := r.resolveDeps(gctx, childID, summary.Pkg, childPath, res, mu); err != nil {
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return collectRejections(errs)
}

// resolveOne resolves a single dependency to a chosen PackageSummary.
// A package required by more than one dependent (a diamond) is resolved
// against the intersection of every constraint seen for its name so
// far, not just the one dep carries — so two dependents naming the same
// package with different constraints converge on a single version
// satisfying both, per the resolver's all-active-constraints policy.
// Concurrent resolutions of the same name are deduplicated via
// singleflight.
func (r *Resolver) resolveOne(ctx context.Context, dep manifest.Dependency, path []PackageId) (PackageSummary, []PackageId, error) {
	for _, seen := range path {
		if seen.Name == dep.Name {
			return PackageSummary{}, nil, &CycleError{Path: append(append([]PackageId{}, path...), PackageId{Name: dep.Name})}
		}
	}

	r.mu.Lock()
	merged := dep.Constraint
	if existing, ok := r.constraints[dep.Name]; ok {
		combined, err := intersectConstraints(existing, dep.Constraint)
		if err == nil {
			merged = combined
		}
	}
	r.constraints[dep.Name] = merged
	cached, hasCached := r.resolved[dep.Name]
	r.mu.Unlock()

	if hasCached && merged.Check(cached.Pkg.Version) {
		return cached, append(append([]PackageId{}, path...), cached.PackageId()), nil
	}

	v, err, _ := r.group.Do(dep.Name, func() (any, error) {
		r.mu.Lock()
		c := r.constraints[dep.Name]
		r.mu.Unlock()
		return r.query(ctx, manifest.Dependency{Name: dep.Name, Constraint: c})
	})
	if err != nil {
		return PackageSummary{}, nil, err
	}
	summary := v.(PackageSummary)

	// A concurrent caller may have merged a stricter constraint in after
	// the shared query above started; re-query directly against this
	// call's own merged view rather than hand back a version that
	// doesn't actually satisfy it.
	if !merged.Check(summary.Pkg.Version) {
		summary, err = r.query(ctx, manifest.Dependency{Name: dep.Name, Constraint: merged})
		if err != nil {
			return PackageSummary{}, nil, err
		}
	}

	r.mu.Lock()
	r.resolved[dep.Name] = summary
	r.mu.Unlock()

	return summary, append(append([]PackageId{}, path...), summary.PackageId()), nil
}

// intersectConstraints combines two constraints into one requiring both
// to hold, by comma-joining their string forms (semver's AND syntax)
// and reparsing.
func intersectConstraints(a, b *semver.Constraints) (*semver.Constraints, error) {
	return semver.NewConstraint(a.String() + ", " + b.String())
}

func (r *Resolver) query(ctx context.Context, dep manifest.Dependency) (PackageSummary, error) {
	specifier := PackageSpecifier{Kind: SpecifierRegistry, FullName: dep.Name, VersionConstraint: dep.Constraint}
	summaries, err := r.Source.Query(ctx, specifier)
	if err != nil {
		var qerr *QueryError
		if !asQueryError(err, &qerr) || qerr.Kind != NoMatches {
			return PackageSummary{}, fmt.Errorf("resolver: querying %s: %w", dep.Name, err)
		}
		return PackageSummary{}, &ConstraintUnsatisfiableError{
			Path:       []PackageId{{Name: dep.Name}},
			Constraint: dep.Constraint,
			Candidates: qerr.ArchivedVersions,
		}
	}

	best := highestSatisfying(summaries)
	return best, nil
}

func asQueryError(err error, target **QueryError) bool {
	qerr, ok := err.(*QueryError)
	if ok {
		*target = qerr
	}
	return ok
}

// highestSatisfying implements the resolver's selection policy: the
// highest version, with newest-version tie-break — semver ordering is
// total so the tie-break never actually triggers, but the two-step
// framing is kept to mirror the source policy description exactly.
func highestSatisfying(candidates []PackageSummary) PackageSummary {
	sorted := append([]PackageSummary{}, candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Pkg.Version.GreaterThan(sorted[j].Pkg.Version)
	})
	return sorted[0]
}

// collectRejections aggregates every per-dependency failure gathered by
// resolveDeps into one error; it returns nil when errs is empty.
func collectRejections(errs []error) error {
	var merged *multierror.Error
	for _, e := range errs {
		merged = multierror.Append(merged, e)
	}
	return merged.ErrorOrNil()
}
