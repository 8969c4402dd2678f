package core

import (
	"context"
	"log/slog"

	"github.com/rainmeas/registry/client"
)

// DefaultURL is the root of the public Rainmeas registry.
const DefaultURL = "https://raw.githubusercontent.com/Rainmeas/rainmeas-registry/main"

const defaultConcurrency = 8

// Registry queries a Rainmeas registry. It holds only immutable
// configuration and is safe for concurrent use.
//
// Methods come in two layers. FetchIndex and FetchPackage return typed
// errors from the client package. The query methods (ListPackageNames,
// PackageInfo, Search, LatestVersion, AvailableVersions, DownloadURL) never
// fail: any error is logged and the result degrades to empty or absent.
type Registry struct {
	urls        *client.URLs
	client      *client.Client
	logger      *slog.Logger
	ordering    Ordering
	concurrency int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger that receives fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithOrdering sets how version labels are ranked when a package has no
// explicit "latest" key.
func WithOrdering(o Ordering) Option {
	return func(r *Registry) {
		r.ordering = o
	}
}

// WithConcurrency bounds the number of package fetches Search runs at once.
// 1 fetches packages one at a time.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a registry rooted at baseURL. If baseURL is empty, DefaultURL
// is used. If c is nil, client.DefaultClient() is used.
func New(baseURL string, c *client.Client, opts ...Option) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	r := &Registry{
		urls:        client.NewURLs(baseURL),
		client:      c,
		logger:      slog.Default(),
		ordering:    LexicographicOrdering{},
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URLs returns the URL builder for this registry.
func (r *Registry) URLs() client.URLBuilder {
	return r.urls
}

// BaseURL returns the registry root.
func (r *Registry) BaseURL() string {
	return r.urls.Base()
}

// FetchJSON fetches url and decodes it into v.
func (r *Registry) FetchJSON(ctx context.Context, url string, v any) error {
	return r.client.GetJSON(ctx, url, v)
}

// FetchIndex retrieves index.json.
func (r *Registry) FetchIndex(ctx context.Context) (*Index, error) {
	var idx Index
	if err := r.FetchJSON(ctx, r.urls.Index(), &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// FetchPackage retrieves packages/<name>.json. A 404 is reported as
// *client.NotFoundError.
func (r *Registry) FetchPackage(ctx context.Context, name string) (*PackageInfo, error) {
	var info PackageInfo
	if err := r.FetchJSON(ctx, r.urls.Package(name), &info); err != nil {
		if client.IsNotFound(err) {
			return nil, &client.NotFoundError{Name: name}
		}
		return nil, err
	}
	return &info, nil
}

// FetchRemoteJSON fetches url into v and reports whether it succeeded.
// Failures are logged, never returned.
func (r *Registry) FetchRemoteJSON(ctx context.Context, url string, v any) bool {
	if err := r.FetchJSON(ctx, url, v); err != nil {
		r.logFetchError(url, err)
		return false
	}
	return true
}

// ListPackageNames returns the index's package names in document order, or
// an empty slice if the index cannot be fetched.
func (r *Registry) ListPackageNames(ctx context.Context) []string {
	var idx Index
	if !r.FetchRemoteJSON(ctx, r.urls.Index(), &idx) {
		return []string{}
	}
	if idx.Names == nil {
		return []string{}
	}
	return idx.Names
}

// PackageInfo returns the package's metadata, or nil if it cannot be fetched.
func (r *Registry) PackageInfo(ctx context.Context, name string) *PackageInfo {
	var info PackageInfo
	if !r.FetchRemoteJSON(ctx, r.urls.Package(name), &info) {
		return nil
	}
	return &info
}

// LatestVersion returns the package's latest version label. If info is nil
// it is fetched first. The explicit "latest" key wins; otherwise the highest
// label under the registry's ordering is returned.
func (r *Registry) LatestVersion(ctx context.Context, name string, info *PackageInfo) (string, bool) {
	if info == nil {
		if info = r.PackageInfo(ctx, name); info == nil {
			return "", false
		}
	}
	return ResolveLatest(r.ordering, info.Versions)
}

// AvailableVersions returns every version label except "latest", in document
// order. If info is nil it is fetched first.
func (r *Registry) AvailableVersions(ctx context.Context, name string, info *PackageInfo) []string {
	if info == nil {
		if info = r.PackageInfo(ctx, name); info == nil {
			return []string{}
		}
	}
	return info.Versions.Labels()
}

// DownloadURL returns the "download" value of name at version. It is absent
// when the version does not exist, its entry is not an object, or the entry
// has no string "download" key. An empty string value is returned as is.
func (r *Registry) DownloadURL(ctx context.Context, name, version string) (string, bool) {
	info := r.PackageInfo(ctx, name)
	if info == nil {
		return "", false
	}
	rel, ok := info.Versions.Release(version)
	if !ok || !rel.HasDownload {
		return "", false
	}
	return rel.Download, true
}

func (r *Registry) logFetchError(url string, err error) {
	r.logger.Warn("error fetching remote data", "url", url, "error", err)
}
