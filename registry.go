// Package registry provides a client for Rainmeas package registries: a
// static tree of JSON files with an index.json listing every package and a
// packages/<name>.json per package.
//
// Basic usage:
//
//	reg := registry.New("", nil)
//
//	for _, name := range reg.ListPackageNames(ctx) {
//		fmt.Println(name)
//	}
//
//	if latest, ok := reg.LatestVersion(ctx, "clock", nil); ok {
//		url, _ := reg.DownloadURL(ctx, "clock", latest)
//		fmt.Println(latest, url)
//	}
//
// The query methods never fail: network errors, non-2xx responses and
// malformed JSON are logged and turn into empty or absent results. Use
// FetchIndex and FetchPackage to get the typed error instead.
package registry

import (
	"github.com/rainmeas/registry/client"
	"github.com/rainmeas/registry/internal/core"
)

// Re-export types from internal/core
type (
	// Registry queries a Rainmeas registry.
	Registry = core.Registry

	// Option configures a Registry.
	Option = core.Option

	// Index is the registry's list of package names.
	Index = core.Index

	// PackageInfo is the metadata of one package.
	PackageInfo = core.PackageInfo

	// Versions is a package's versions object.
	Versions = core.Versions

	// Release is one entry of a versions object.
	Release = core.Release

	// SearchResult maps package names to search matches.
	SearchResult = core.SearchResult

	// Match is one search hit.
	Match = core.Match

	// Ordering ranks version labels.
	Ordering = core.Ordering

	// LexicographicOrdering ranks version labels as plain strings.
	LexicographicOrdering = core.LexicographicOrdering

	// SemanticOrdering ranks version labels as versions.
	SemanticOrdering = core.SemanticOrdering
)

// Re-export types from client
type (
	// Client is the HTTP client used to reach the registry.
	Client = client.Client

	// ClientOption configures a Client.
	ClientOption = client.Option

	// URLBuilder constructs URLs for a registry.
	URLBuilder = client.URLBuilder

	// RateLimiter controls request pacing.
	RateLimiter = client.RateLimiter
)

// Error types
type (
	NetworkError   = client.NetworkError
	HTTPError      = client.HTTPError
	ParseError     = client.ParseError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// Re-export constants
const (
	DefaultURL     = core.DefaultURL
	LatestKey      = core.LatestKey
	UnknownVersion = core.UnknownVersion
)

// Re-export errors
var (
	ErrNotFound = client.ErrNotFound
)

// New creates a registry client rooted at baseURL.
// If baseURL is empty, DefaultURL is used.
// If c is nil, DefaultClient() is used.
func New(baseURL string, c *Client, opts ...Option) *Registry {
	return core.New(baseURL, c, opts...)
}

// Registry options.
var (
	WithLogger      = core.WithLogger
	WithOrdering    = core.WithOrdering
	WithConcurrency = core.WithConcurrency
)

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - DNS-cached transport
// - no retries
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...ClientOption) *Client {
	return client.NewClient(opts...)
}

// Client options.
var (
	WithTimeout     = client.WithTimeout
	WithMaxRetries  = client.WithMaxRetries
	WithBaseDelay   = client.WithBaseDelay
	WithHTTPClient  = client.WithHTTPClient
	WithRateLimiter = client.WithRateLimiter
)

// IsNotFound reports whether err means the requested resource does not exist.
func IsNotFound(err error) bool {
	return client.IsNotFound(err)
}

// ResolveLatest returns the explicit "latest" label of v when present,
// otherwise the highest other label under o.
func ResolveLatest(o Ordering, v Versions) (string, bool) {
	return core.ResolveLatest(o, v)
}

// PURL returns the package URL for name, with version when non-empty.
func PURL(name, version string) string {
	return core.PURL(name, version)
}

// ParsePURL parses a pkg:rainmeas package URL into name and version.
func ParsePURL(purl string) (name, version string, err error) {
	return core.ParsePURL(purl)
}
