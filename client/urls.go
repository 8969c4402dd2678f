package client

import (
	"net/url"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the package-url type used for Rainmeas packages.
const PURLType = "rainmeas"

// URLBuilder constructs URLs for a registry.
type URLBuilder interface {
	Index() string
	Package(name string) string
	PURL(name, version string) string
}

// URLs is the URLBuilder for the static registry layout:
// <base>/index.json and <base>/packages/<name>.json.
type URLs struct {
	baseURL string
}

// NewURLs returns a URLBuilder rooted at baseURL. A trailing slash is ignored.
func NewURLs(baseURL string) *URLs {
	return &URLs{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Base returns the registry root without a trailing slash.
func (u *URLs) Base() string {
	return u.baseURL
}

func (u *URLs) Index() string {
	return u.baseURL + "/index.json"
}

// Package percent-encodes name as a single path segment, so names with
// slashes, spaces or ".." cannot escape the packages/ directory.
func (u *URLs) Package(name string) string {
	return u.baseURL + "/packages/" + url.PathEscape(name) + ".json"
}

func (u *URLs) PURL(name, version string) string {
	return packageurl.NewPackageURL(PURLType, "", name, version, nil, "").ToString()
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "metadata" and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string)
	if v := urls.Package(name); v != "" {
		result["metadata"] = v
	}
	if v := urls.PURL(name, version); v != "" {
		result["purl"] = v
	}
	return result
}
