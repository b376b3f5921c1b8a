package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/manifest"
	"github.com/wasmerio/wasmer-runtime-go/resolver"
	"github.com/wasmerio/wasmer-runtime-go/vfs"
)

// BinaryPackageCommand is one runnable entrypoint of an assembled
// BinaryPackage: a name, its manifest metadata, and its atom bytes.
// Its hash is computed lazily on first access and memoized.
type BinaryPackageCommand struct {
	Name     string
	Metadata manifest.Command
	atom     []byte

	hashOnce sync.Once
	hash     cache.ModuleHash
}

// Atom returns the command's backing atom bytes.
func (c *BinaryPackageCommand) Atom() []byte { return c.atom }

// Hash returns the SHA-256 of the command's atom bytes, computing it
// once and memoizing the result.
func (c *BinaryPackageCommand) Hash() cache.ModuleHash {
	c.hashOnce.Do(func() {
		c.hash = cache.SHA256(c.atom)
	})
	return c.hash
}

// BinaryPackage is a fully assembled, executable package image: its
// own commands plus every dependency's re-exported commands, merged
// into one virtual filesystem.
type BinaryPackage struct {
	PackageName   string
	Version       string
	EntrypointCmd string
	Commands      []*BinaryPackageCommand
	FS            afero.Fs
	Uses          []string

	ModuleMemoryFootprint     uint64
	FileSystemMemoryFootprint uint64

	hashOnce sync.Once
	hash     cache.ModuleHash
}

// GetCommand finds a command by name.
func (p *BinaryPackage) GetCommand(name string) (*BinaryPackageCommand, bool) {
	for _, c := range p.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// EntrypointBytes returns the entrypoint command's atom bytes, if any.
func (p *BinaryPackage) EntrypointBytes() ([]byte, bool) {
	if p.EntrypointCmd == "" {
		return nil, false
	}
	cmd, ok := p.GetCommand(p.EntrypointCmd)
	if !ok {
		return nil, false
	}
	return cmd.Atom(), true
}

// Hash returns the package-level hash: the entrypoint atom's hash if
// present, else the SHA-256 of the package name.
func (p *BinaryPackage) Hash() cache.ModuleHash {
	p.hashOnce.Do(func() {
		if entry, ok := p.EntrypointBytes(); ok {
			p.hash = cache.SHA256(entry)
		} else {
			p.hash = cache.SHA256([]byte(p.PackageName))
		}
	})
	return p.hash
}

// HTTPDoer is the HTTP capability Loader needs to fetch container bytes.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Loader implements PackageLoader: fetching and verifying one
// container, then assembling a resolved dependency tree into a
// BinaryPackage.
type Loader struct {
	Client HTTPDoer
	Logger *zap.Logger
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return zap.NewNop()
}

// Load fetches and verifies the container bytes for summary.
func (l *Loader) Load(ctx context.Context, summary resolver.PackageSummary) (*Container, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, summary.Dist.Webc.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("loader: building request: %w", err)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loader: fetching %s: %w", summary.Dist.Webc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("loader: %s replied with status %d", summary.Dist.Webc, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("loader: reading response body: %w", err)
	}

	if err := VerifySHA256(data, summary.Dist.WebcSHA256); err != nil {
		return nil, err
	}

	return ParseContainer(data)
}

// LoadPackageTree fetches every dependency named in resolution, then
// assembles rootContainer plus every successfully-loaded dependency
// into one BinaryPackage. A dependency subtree that fails to load does
// not abort the whole assembly: the package still comes back with
// whatever loaded, and every failure is returned together via
// go-multierror so the caller sees the complete picture.
func (l *Loader) LoadPackageTree(ctx context.Context, rootContainer *Container, resolution *resolver.Resolution) (*BinaryPackage, error) {
	containers := map[resolver.PackageId]*Container{resolution.Root: rootContainer}
	var errs *multierror.Error
	var mu sync.Mutex
	var wg sync.WaitGroup

	for id, summary := range resolution.Nodes {
		if id == resolution.Root {
			continue
		}
		id, summary := id, summary
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := l.Load(ctx, summary)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				l.logger().Warn("loader: failed to load dependency, continuing without it",
					zap.String("package", id.String()), zap.Error(err))
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", id, err))
				return
			}
			containers[id] = c
		}()
	}
	wg.Wait()

	pkg := &BinaryPackage{
		PackageName:   rootContainer.Manifest.Name,
		Version:       rootContainer.Manifest.Version.String(),
		EntrypointCmd: rootContainer.Manifest.Entrypoint,
	}

	merged, err := assembleFilesystem(rootContainer, resolution, containers)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	pkg.FS = merged

	pkg.Commands = commandsOf(rootContainer)
	for id, c := range containers {
		if id == resolution.Root {
			continue
		}
		cmds := commandsOf(c)
		if len(cmds) > 0 {
			pkg.Commands = append(pkg.Commands, cmds...)
			pkg.Uses = append(pkg.Uses, id.String())
		}
	}

	for _, atom := range rootContainer.Atoms {
		pkg.ModuleMemoryFootprint += uint64(len(atom))
	}
	for _, c := range containers {
		pkg.FileSystemMemoryFootprint += filesystemSize(c)
	}

	return pkg, errs.ErrorOrNil()
}

// assembleFilesystem layers the root container's own volumes with every
// successfully-loaded dependency's re-exported volumes, using each
// edge's declared filesystem mappings to decide the mount path. Missing
// dependency containers are skipped rather than failing the whole tree.
func assembleFilesystem(root *Container, resolution *resolver.Resolution, containers map[resolver.PackageId]*Container) (afero.Fs, error) {
	var rootVolumes []vfs.Volume
	for name, fs := range root.Volumes {
		rootVolumes = append(rootVolumes, vfs.Volume{Name: name, FS: fs})
	}
	merged, err := vfs.Mount(root.Manifest.Filesystem, rootVolumes)
	if err != nil {
		return nil, fmt.Errorf("loader: assembling root filesystem: %w", err)
	}

	for _, edges := range resolution.Edges {
		for _, edge := range edges {
			dep, ok := findByName(resolution, containers, edge.DependencyName)
			if !ok || len(edge.Filesystem) == 0 {
				continue
			}
			var depVolumes []vfs.Volume
			for name, fs := range dep.Volumes {
				depVolumes = append(depVolumes, vfs.Volume{Name: name, FS: fs})
			}
			overlay, err := vfs.Mount(edge.Filesystem, depVolumes)
			if err != nil {
				return merged, fmt.Errorf("loader: mounting %q's re-exported filesystem: %w", edge.DependencyName, err)
			}
			merged = afero.NewCopyOnWriteFs(merged, overlay)
		}
	}
	return merged, nil
}

func findByName(resolution *resolver.Resolution, containers map[resolver.PackageId]*Container, name string) (*Container, bool) {
	for id := range resolution.Nodes {
		if id.Name != name {
			continue
		}
		if c, ok := containers[id]; ok {
			return c, true
		}
	}
	return nil, false
}

func commandsOf(c *Container) []*BinaryPackageCommand {
	cmds := make([]*BinaryPackageCommand, 0, len(c.Manifest.Commands))
	for _, cmd := range c.Manifest.Commands {
		cmds = append(cmds, &BinaryPackageCommand{
			Name:     cmd.Name,
			Metadata: cmd,
			atom:     c.Atoms[atomNameFor(cmd)],
		})
	}
	return cmds
}

// atomNameFor recovers the atom a command runs from its runner
// annotations (e.g. {"atom": "main"}), falling back to the command's
// own name, which is how single-atom packages declare their commands.
func atomNameFor(cmd manifest.Command) string {
	if len(cmd.Annotations) > 0 {
		var fields struct {
			Atom string `json:"atom"`
		}
		if err := json.Unmarshal(cmd.Annotations, &fields); err == nil && fields.Atom != "" {
			return fields.Atom
		}
	}
	return cmd.Name
}

func filesystemSize(c *Container) uint64 {
	var total uint64
	for _, fs := range c.Volumes {
		_ = afero.Walk(fs, "/", func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				total += uint64(info.Size())
			}
			return nil
		})
	}
	return total
}
