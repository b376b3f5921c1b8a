package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/wasmerio/wasmer-runtime-go/cache"
	"github.com/wasmerio/wasmer-runtime-go/manifest"
)

// Well-known WAPM GraphQL endpoints, as published by the registry.
const (
	WasmerDevEndpoint  = "https://registry.wasmer.wtf/graphql"
	WasmerProdEndpoint = "https://registry.wasmer.io/graphql"
)

const defaultUserAgent = "wasmer-runtime-go"

const webcQueryAll = `{
    getPackage(name: "$NAME") {
        versions {
        version
        piritaManifest
        isArchived
        distribution {
            piritaDownloadUrl
            piritaSha256Hash
        }
        }
    }
}`

// HTTPDoer is the minimal HTTP capability WapmSource needs. A
// *http.Client satisfies it directly, as does
// retryablehttp.Client.StandardClient() — the retry-capable transport
// this module's Runtime wires in by default (see runtime package).
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WapmSource queries a Wasmer-like GraphQL registry endpoint, with an
// optional local disk cache of raw responses.
type WapmSource struct {
	Endpoint  *url.URL
	Client    HTTPDoer
	UserAgent string
	Logger    *zap.Logger

	cache *cache.Disk[wapmWebQuery]
}

// NewWapmSource constructs a WapmSource with no local cache.
func NewWapmSource(endpoint *url.URL, client HTTPDoer) *WapmSource {
	return &WapmSource{Endpoint: endpoint, Client: client, UserAgent: defaultUserAgent}
}

// WithLocalCache enables a disk cache of raw query responses at dir,
// with entries considered fresh for timeout.
func (s *WapmSource) WithLocalCache(dir string, timeout time.Duration) *WapmSource {
	s.cache = &cache.Disk[wapmWebQuery]{Dir: dir, Timeout: timeout, Logger: s.logger()}
	return s
}

func (s *WapmSource) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// Query implements Source.
func (s *WapmSource) Query(ctx context.Context, specifier PackageSpecifier) ([]PackageSummary, error) {
	if specifier.Kind != SpecifierRegistry {
		return nil, &QueryError{Kind: Unsupported}
	}

	response, err := s.lookupPackage(ctx, specifier.FullName)
	if err != nil {
		return nil, &QueryError{Kind: Registry, Err: err}
	}

	if response.Data.GetPackage == nil {
		return nil, &QueryError{Kind: NotFound}
	}

	var summaries []PackageSummary
	var archived []*semver.Version

	for _, v := range response.Data.GetPackage.Versions {
		version, err := semver.NewVersion(v.Version)
		if err != nil {
			s.logger().Debug("resolver: skipping version with invalid semver", zap.String("version", v.Version), zap.Error(err))
			continue
		}

		if v.IsArchived {
			s.logger().Debug("resolver: skipping archived version", zap.Stringer("version", version))
			archived = append(archived, version)
			continue
		}

		if !specifier.VersionConstraint.Check(version) {
			continue
		}

		summary, err := decodeSummary(v)
		if err != nil {
			s.logger().Debug("resolver: skipping version with unparsable metadata", zap.Stringer("version", version), zap.Error(err))
			continue
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return nil, &QueryError{Kind: NoMatches, ArchivedVersions: archived}
	}
	return summaries, nil
}

func (s *WapmSource) lookupPackage(ctx context.Context, fullName string) (wapmWebQuery, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Lookup(fullName); ok {
			s.logger().Debug("resolver: cache hit", zap.String("package", fullName))
			return cached, nil
		}
	}

	response, err := s.queryGraphQL(ctx, fullName)
	if err != nil {
		return wapmWebQuery{}, err
	}

	if s.cache != nil {
		s.cache.Store(fullName, response)
	}
	return response, nil
}

func (s *WapmSource) queryGraphQL(ctx context.Context, fullName string) (wapmWebQuery, error) {
	query := strings.ReplaceAll(webcQueryAll, "$NAME", fullName)
	body, err := json.Marshal(struct {
		Query string `json:"query"`
	}{Query: query})
	if err != nil {
		return wapmWebQuery{}, fmt.Errorf("resolver: encoding GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return wapmWebQuery{}, fmt.Errorf("resolver: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return wapmWebQuery{}, fmt.Errorf("resolver: GraphQL request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wapmWebQuery{}, fmt.Errorf("resolver: %q replied with status %d", s.Endpoint, resp.StatusCode)
	}

	var decoded wapmWebQuery
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return wapmWebQuery{}, fmt.Errorf("resolver: decoding GraphQL response: %w", err)
	}
	return decoded, nil
}

func decodeSummary(v wapmWebQueryVersion) (PackageSummary, error) {
	if v.Manifest == nil {
		return PackageSummary{}, fmt.Errorf("resolver: missing manifest")
	}
	if v.Distribution.PiritaSha256Hash == nil {
		return PackageSummary{}, fmt.Errorf("resolver: missing sha256")
	}
	if v.Distribution.PiritaDownloadURL == nil {
		return PackageSummary{}, fmt.Errorf("resolver: missing download url")
	}

	pkg, err := manifest.Parse([]byte(*v.Manifest))
	if err != nil {
		return PackageSummary{}, fmt.Errorf("resolver: parsing manifest: %w", err)
	}

	hash, err := cache.ParseModuleHash(*v.Distribution.PiritaSha256Hash)
	if err != nil {
		return PackageSummary{}, fmt.Errorf("resolver: parsing sha256: %w", err)
	}

	webc, err := url.Parse(*v.Distribution.PiritaDownloadURL)
	if err != nil {
		return PackageSummary{}, fmt.Errorf("resolver: parsing download url: %w", err)
	}

	return PackageSummary{
		Pkg:  pkg,
		Dist: DistributionInfo{Webc: webc, WebcSHA256: hash},
	}, nil
}

// wapmWebQuery mirrors the GraphQL response shape. Per spec, decoding
// is forgiving: a missing field only drops the one version it belongs
// to, not the whole response.
type wapmWebQuery struct {
	Data wapmWebQueryData `json:"data"`
}

type wapmWebQueryData struct {
	GetPackage *wapmWebQueryGetPackage `json:"getPackage"`
}

type wapmWebQueryGetPackage struct {
	Versions []wapmWebQueryVersion `json:"versions"`
}

type wapmWebQueryVersion struct {
	Version      string                          `json:"version"`
	IsArchived   bool                            `json:"isArchived"`
	Manifest     *string                         `json:"piritaManifest"`
	Distribution wapmWebQueryVersionDistribution `json:"distribution"`
}

type wapmWebQueryVersionDistribution struct {
	PiritaDownloadURL *string `json:"piritaDownloadUrl"`
	PiritaSha256Hash  *string `json:"piritaSha256Hash"`
}
