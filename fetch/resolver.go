package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rainmeas/registry"
)

var ErrNoDownloadURL = errors.New("no download URL available")

// Registry provides the package metadata needed to resolve artifacts.
// *registry.Registry satisfies it.
type Registry interface {
	FetchPackage(ctx context.Context, name string) (*registry.PackageInfo, error)
	LatestVersion(ctx context.Context, name string, info *registry.PackageInfo) (string, bool)
}

// Resolver determines download URLs for package releases.
type Resolver struct {
	registry Registry
}

// NewResolver creates a resolver backed by reg.
func NewResolver(reg Registry) *Resolver {
	return &Resolver{registry: reg}
}

// ArtifactInfo describes a downloadable release archive.
type ArtifactInfo struct {
	Name     string
	Version  string
	URL      string
	Host     string // host of URL, keys the download circuit breaker
	Filename string
}

// Resolve returns the download URL and filename for name at version. An
// empty version or "latest" resolves to the package's latest version.
func (r *Resolver) Resolve(ctx context.Context, name, version string) (*ArtifactInfo, error) {
	info, err := r.registry.FetchPackage(ctx, name)
	if err != nil {
		if registry.IsNotFound(err) {
			return nil, fmt.Errorf("%w: package %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("fetching package: %w", err)
	}

	if version == "" || version == registry.LatestKey {
		latest, ok := r.registry.LatestVersion(ctx, name, info)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no versions", ErrNotFound, name)
		}
		version = latest
	}

	rel, ok := info.Versions.Release(version)
	if !ok {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, name, version)
	}
	if !rel.HasDownload || rel.Download == "" {
		return nil, fmt.Errorf("%w: %s@%s", ErrNoDownloadURL, name, version)
	}

	return &ArtifactInfo{
		Name:     name,
		Version:  version,
		URL:      rel.Download,
		Host:     downloadHost(rel.Download),
		Filename: filenameFromURL(rel.Download, name, version),
	}, nil
}

// downloadHost returns the host[:port] of rawURL, or rawURL itself when it
// has no host.
func downloadHost(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}

// filenameFromURL returns the last path segment of rawURL, ignoring any
// query or fragment. It falls back to name-version.zip when the URL has no
// usable segment.
func filenameFromURL(rawURL, name, version string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return base
		}
	}
	if idx := strings.LastIndex(rawURL, "/"); idx >= 0 && idx < len(rawURL)-1 {
		return rawURL[idx+1:]
	}
	if rawURL != "" && !strings.Contains(rawURL, "/") {
		return rawURL
	}
	return fmt.Sprintf("%s-%s.zip", strings.ReplaceAll(name, "/", "-"), version)
}
