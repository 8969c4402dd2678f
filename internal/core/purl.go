package core

import (
	"fmt"

	packageurl "github.com/package-url/packageurl-go"

	"github.com/rainmeas/registry/client"
)

// PURL returns the package URL for name, with version when non-empty.
func PURL(name, version string) string {
	return client.NewURLs("").PURL(name, version)
}

// ParsePURL parses a pkg:rainmeas package URL and returns the package name
// and version (empty if the PURL has none).
func ParsePURL(purl string) (name, version string, err error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return "", "", err
	}
	if p.Type != client.PURLType {
		return "", "", fmt.Errorf("unsupported PURL type %q, want %q", p.Type, client.PURLType)
	}
	if p.Namespace != "" {
		return p.Namespace + "/" + p.Name, p.Version, nil
	}
	return p.Name, p.Version, nil
}
