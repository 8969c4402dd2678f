// Package core provides the registry data model and the Registry client.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LatestKey is the reserved versions key naming the latest version label.
const LatestKey = "latest"

// UnknownVersion is reported in search results when no latest version can be
// derived for a package.
const UnknownVersion = "unknown"

// Index is the registry's index.json: package names in document order. The
// per-package values are kept verbatim and never interpreted.
type Index struct {
	Names   []string
	Entries map[string]json.RawMessage
}

func (i *Index) UnmarshalJSON(data []byte) error {
	*i = Index{Entries: make(map[string]json.RawMessage)}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		if _, dup := i.Entries[key]; !dup {
			i.Names = append(i.Names, key)
		}
		i.Entries[key] = raw
		return nil
	})
}

// PackageInfo is the content of packages/<name>.json.
type PackageInfo struct {
	Description string
	Author      string
	Versions    Versions
	Metadata    map[string]any // every other top-level field

	empty bool
}

// IsEmpty reports whether the package document was an empty JSON object.
// Search skips such packages.
func (p *PackageInfo) IsEmpty() bool {
	return p.empty
}

func (p *PackageInfo) UnmarshalJSON(data []byte) error {
	*p = PackageInfo{empty: true}
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		p.empty = false
		switch key {
		case "description":
			return decodeOptionalString(raw, &p.Description)
		case "author":
			return decodeOptionalString(raw, &p.Author)
		case "versions":
			return json.Unmarshal(raw, &p.Versions)
		default:
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if p.Metadata == nil {
				p.Metadata = make(map[string]any)
			}
			p.Metadata[key] = v
			return nil
		}
	})
}

// Versions is the versions object of a package. Labels keep document order
// and never include "latest".
type Versions struct {
	latest    string
	hasLatest bool
	labels    []string
	releases  map[string]Release
}

// Release is one entry of the versions object.
type Release struct {
	Download string
	// HasDownload is true when the entry carries a string "download" key,
	// even an empty one.
	HasDownload bool
	// IsObject is false when the entry's value was not a JSON object; such
	// entries still count as versions but carry no download URL.
	IsObject bool
}

// NewVersions builds a Versions value without a "latest" key. Labels keep
// their order; duplicates and "latest" itself are dropped.
func NewVersions(labels []string, releases map[string]Release) Versions {
	v := Versions{releases: make(map[string]Release, len(labels))}
	for _, l := range labels {
		if l == LatestKey {
			continue
		}
		if _, dup := v.releases[l]; !dup {
			v.labels = append(v.labels, l)
		}
		v.releases[l] = releases[l]
	}
	return v
}

func (v *Versions) UnmarshalJSON(data []byte) error {
	*v = Versions{releases: make(map[string]Release)}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// null, arrays and scalars carry no versions
		return nil
	}

	return decodeObject(trimmed, func(key string, raw json.RawMessage) error {
		if key == LatestKey {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				v.latest, v.hasLatest = s, true
			}
			return nil
		}

		var rel Release
		if t := bytes.TrimSpace(raw); len(t) > 0 && t[0] == '{' {
			var obj struct {
				Download any `json:"download"`
			}
			if err := json.Unmarshal(t, &obj); err != nil {
				return err
			}
			rel.IsObject = true
			if s, ok := obj.Download.(string); ok {
				rel.Download, rel.HasDownload = s, true
			}
		}

		if _, dup := v.releases[key]; !dup {
			v.labels = append(v.labels, key)
		}
		v.releases[key] = rel
		return nil
	})
}

// WithLatest returns a copy of v whose "latest" key is set to latest. An
// empty latest is kept as an explicit empty label.
func (v Versions) WithLatest(latest string) Versions {
	v.latest, v.hasLatest = latest, true
	return v
}

// Latest returns the value of the "latest" key. A "latest" that is not a
// JSON string is treated as absent, so the highest label is used instead.
func (v Versions) Latest() (string, bool) {
	return v.latest, v.hasLatest
}

// Labels returns the version labels in document order, excluding "latest".
func (v Versions) Labels() []string {
	out := make([]string, len(v.labels))
	copy(out, v.labels)
	return out
}

// Release returns the entry for label.
func (v Versions) Release(label string) (Release, bool) {
	if label == LatestKey {
		return Release{}, false
	}
	r, ok := v.releases[label]
	return r, ok
}

// Len returns the number of version labels, excluding "latest".
func (v Versions) Len() int {
	return len(v.labels)
}

// Match is one search hit.
type Match struct {
	Latest   string   `json:"latest"`
	Versions []string `json:"versions"`
}

// SearchResult maps package name to its match.
type SearchResult map[string]Match

// decodeObject walks a JSON object in document order, calling fn with each
// key and its raw value.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func decodeOptionalString(raw json.RawMessage, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
