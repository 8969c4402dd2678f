package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIndexPreservesOrder(t *testing.T) {
	var idx Index
	if err := json.Unmarshal([]byte(`{"zeta": 1, "alpha": {"x": true}, "mid": null}`), &idx); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(idx.Names, want) {
		t.Errorf("Names = %v, want %v", idx.Names, want)
	}
	if string(idx.Entries["alpha"]) != `{"x": true}` {
		t.Errorf("Entries[alpha] = %s", idx.Entries["alpha"])
	}
}

func TestIndexRejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `"x"`, `null`, `42`} {
		var idx Index
		if err := json.Unmarshal([]byte(body), &idx); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", body)
		}
	}
}

func TestPackageInfoUnmarshal(t *testing.T) {
	body := `{
		"description": "demo",
		"author": "alice",
		"homepage": "https://example.com",
		"versions": {
			"latest": "1.2",
			"1.0": {"download": "http://x/1.0.zip"},
			"1.2": {},
			"0.9": "legacy"
		}
	}`

	var info PackageInfo
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if info.Description != "demo" {
		t.Errorf("Description = %q, want %q", info.Description, "demo")
	}
	if info.Author != "alice" {
		t.Errorf("Author = %q, want %q", info.Author, "alice")
	}
	if info.Metadata["homepage"] != "https://example.com" {
		t.Errorf("Metadata[homepage] = %v", info.Metadata["homepage"])
	}

	latest, ok := info.Versions.Latest()
	if !ok || latest != "1.2" {
		t.Errorf("Latest() = %q, %v, want 1.2, true", latest, ok)
	}

	wantLabels := []string{"1.0", "1.2", "0.9"}
	if got := info.Versions.Labels(); !reflect.DeepEqual(got, wantLabels) {
		t.Errorf("Labels() = %v, want %v", got, wantLabels)
	}

	rel, ok := info.Versions.Release("1.0")
	if !ok || !rel.IsObject || rel.Download != "http://x/1.0.zip" {
		t.Errorf("Release(1.0) = %+v, %v", rel, ok)
	}
	rel, ok = info.Versions.Release("0.9")
	if !ok || rel.IsObject {
		t.Errorf("Release(0.9) = %+v, %v, want non-object entry", rel, ok)
	}
	if _, ok := info.Versions.Release("latest"); ok {
		t.Error("Release(latest) should not resolve")
	}
}

func TestPackageInfoMissingFields(t *testing.T) {
	var info PackageInfo
	if err := json.Unmarshal([]byte(`{"description": null}`), &info); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if info.Description != "" || info.Author != "" {
		t.Errorf("expected empty description and author, got %+v", info)
	}
	if info.Versions.Len() != 0 {
		t.Errorf("Versions.Len() = %d, want 0", info.Versions.Len())
	}
	if _, ok := info.Versions.Latest(); ok {
		t.Error("Latest() should be absent")
	}
}

func TestVersionsIgnoresNonObject(t *testing.T) {
	for _, body := range []string{`null`, `[]`, `["1.0"]`, `"1.0"`} {
		var v Versions
		if err := json.Unmarshal([]byte(body), &v); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", body, err)
		}
		if v.Len() != 0 {
			t.Errorf("Unmarshal(%s) Len() = %d, want 0", body, v.Len())
		}
	}
}

func TestVersionsNonStringLatest(t *testing.T) {
	var v Versions
	if err := json.Unmarshal([]byte(`{"latest": {"download": "x"}, "1.0": {}}`), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := v.Latest(); ok {
		t.Error("non-string latest should be treated as absent")
	}
	if got := v.Labels(); !reflect.DeepEqual(got, []string{"1.0"}) {
		t.Errorf("Labels() = %v, want [1.0]", got)
	}
}

func TestNewVersions(t *testing.T) {
	v := NewVersions([]string{"2.0", "latest", "1.0", "2.0"}, map[string]Release{
		"1.0": {Download: "http://x/1.0.zip", HasDownload: true, IsObject: true},
	})

	if got := v.Labels(); !reflect.DeepEqual(got, []string{"2.0", "1.0"}) {
		t.Errorf("Labels() = %v, want [2.0 1.0]", got)
	}
	if _, ok := v.Latest(); ok {
		t.Error("Latest() should be absent")
	}
	if rel, _ := v.Release("1.0"); rel.Download != "http://x/1.0.zip" {
		t.Errorf("Release(1.0).Download = %q", rel.Download)
	}
}

func TestLabelsReturnsCopy(t *testing.T) {
	v := NewVersions([]string{"1.0", "2.0"}, nil)
	labels := v.Labels()
	labels[0] = "mutated"
	if v.Labels()[0] != "1.0" {
		t.Error("Labels() exposed internal slice")
	}
}

func TestWithLatestKeepsEmptyLabel(t *testing.T) {
	v := NewVersions([]string{"1.0", "2.0"}, map[string]Release{
		"1.0": {IsObject: true},
		"2.0": {IsObject: true},
	}).WithLatest("")

	latest, ok := v.Latest()
	if !ok || latest != "" {
		t.Errorf("Latest() = %q, %v, want explicit empty label", latest, ok)
	}
	if got, ok := ResolveLatest(LexicographicOrdering{}, v); !ok || got != "" {
		t.Errorf("ResolveLatest() = %q, %v, want \"\", true", got, ok)
	}

	var decoded Versions
	if err := json.Unmarshal([]byte(`{"latest":"","1.0":{},"2.0":{}}`), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(decoded, v) {
		t.Errorf("decoded = %+v, want %+v", decoded, v)
	}
}

func TestReleaseHasDownload(t *testing.T) {
	var v Versions
	data := `{"1.0":{"download":"http://x/1.0.zip"},"0.9":{"download":""},"0.8":{"download":null},"0.7":{}}`
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	tests := []struct {
		label        string
		wantDownload string
		wantHas      bool
	}{
		{"1.0", "http://x/1.0.zip", true},
		{"0.9", "", true},
		{"0.8", "", false},
		{"0.7", "", false},
	}
	for _, tt := range tests {
		rel, _ := v.Release(tt.label)
		if rel.Download != tt.wantDownload || rel.HasDownload != tt.wantHas {
			t.Errorf("Release(%q) = %+v, want Download %q HasDownload %v", tt.label, rel, tt.wantDownload, tt.wantHas)
		}
	}
}

func TestPackageInfoIsEmpty(t *testing.T) {
	tests := []struct {
		data string
		want bool
	}{
		{`{}`, true},
		{` { } `, true},
		{`{"versions":{}}`, false},
		{`{"homepage":"x"}`, false},
		{`{"description":null}`, false},
	}
	for _, tt := range tests {
		var info PackageInfo
		if err := json.Unmarshal([]byte(tt.data), &info); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.data, err)
		}
		if got := info.IsEmpty(); got != tt.want {
			t.Errorf("IsEmpty(%s) = %v, want %v", tt.data, got, tt.want)
		}
	}
}
