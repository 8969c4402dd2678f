package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/rainmeas/registry/client"
)

// newTestRegistry serves files keyed by URL path; any other path is a 404.
func newTestRegistry(t *testing.T, files map[string]string, opts ...Option) (*Registry, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(server.URL, client.DefaultClient(), opts...), server
}

func TestNewDefaults(t *testing.T) {
	reg := New("", nil)
	if reg.BaseURL() != DefaultURL {
		t.Errorf("BaseURL() = %q, want %q", reg.BaseURL(), DefaultURL)
	}
	if reg.URLs().Index() != DefaultURL+"/index.json" {
		t.Errorf("Index URL = %q", reg.URLs().Index())
	}
}

func TestListPackageNames(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/index.json": `{"pkg-b": {}, "pkg-a": 1, "pkg-c": "x"}`,
	})

	got := reg.ListPackageNames(context.Background())
	want := []string{"pkg-b", "pkg-a", "pkg-c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListPackageNames() = %v, want %v", got, want)
	}
}

func TestListPackageNamesFailure(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"pkg-a": `))
		}},
		{"not an object", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`["pkg-a"]`))
		}},
		{"empty object", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			reg := New(server.URL, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			got := reg.ListPackageNames(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("ListPackageNames() = %#v, want empty slice", got)
			}
		})
	}
}

func TestFetchRemoteJSONLogsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var buf bytes.Buffer
	reg := New(server.URL, nil, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	var v any
	if reg.FetchRemoteJSON(context.Background(), server.URL+"/index.json", &v) {
		t.Fatal("FetchRemoteJSON succeeded, want failure")
	}
	out := buf.String()
	if !strings.Contains(out, server.URL+"/index.json") || !strings.Contains(out, "HTTP 500") {
		t.Errorf("log output missing url or error: %s", out)
	}
}

func TestFetchPackage(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/pkg-a.json": `{"description":"demo","author":"alice","versions":{"1.0":{}}}`,
	})

	info, err := reg.FetchPackage(context.Background(), "pkg-a")
	if err != nil {
		t.Fatalf("FetchPackage failed: %v", err)
	}
	if info.Description != "demo" || info.Author != "alice" {
		t.Errorf("unexpected info: %+v", info)
	}

	_, err = reg.FetchPackage(context.Background(), "missing")
	var notFound *client.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
	if !errors.Is(err, client.ErrNotFound) {
		t.Error("NotFoundError should wrap ErrNotFound")
	}
	if notFound.Name != "missing" {
		t.Errorf("Name = %q, want missing", notFound.Name)
	}
}

func TestFetchIndex(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/index.json": `{"pkg-a": {"tags": ["skin"]}}`,
	})

	idx, err := reg.FetchIndex(context.Background())
	if err != nil {
		t.Fatalf("FetchIndex failed: %v", err)
	}
	if len(idx.Names) != 1 || idx.Names[0] != "pkg-a" {
		t.Errorf("Names = %v", idx.Names)
	}
}

func TestPackageInfoEscapesName(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"description":"x"}`))
	}))
	defer server.Close()

	reg := New(server.URL, nil)
	if info := reg.PackageInfo(context.Background(), "../my skin"); info == nil {
		t.Fatal("PackageInfo returned nil")
	}
	if gotPath != "/packages/..%2Fmy%20skin.json" {
		t.Errorf("path = %q, want /packages/..%%2Fmy%%20skin.json", gotPath)
	}
}

func TestPackageInfoFailure(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/broken.json": `{"description": `,
	})

	if info := reg.PackageInfo(context.Background(), "missing"); info != nil {
		t.Errorf("PackageInfo(missing) = %+v, want nil", info)
	}
	if info := reg.PackageInfo(context.Background(), "broken"); info != nil {
		t.Errorf("PackageInfo(broken) = %+v, want nil", info)
	}
}

func TestLatestVersion(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/explicit.json":   `{"versions":{"latest":"2.0","1.0":{},"2.0":{}}}`,
		"/packages/implicit.json":   `{"versions":{"1.0":{},"2.0":{}}}`,
		"/packages/semver.json":     `{"versions":{"9.0":{},"10.0":{}}}`,
		"/packages/empty.json":      `{"versions":{}}`,
		"/packages/noversions.json": `{"description":"x"}`,
	})
	ctx := context.Background()

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"explicit", "2.0", true},
		{"implicit", "2.0", true},
		{"semver", "9.0", true},
		{"empty", "", false},
		{"noversions", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := reg.LatestVersion(ctx, tt.name, nil)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("LatestVersion(%q) = %q, %v, want %q, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLatestVersionSemanticOrdering(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/semver.json": `{"versions":{"9.0":{},"10.0":{}}}`,
	}, WithOrdering(SemanticOrdering{}))

	got, ok := reg.LatestVersion(context.Background(), "semver", nil)
	if !ok || got != "10.0" {
		t.Errorf("LatestVersion = %q, %v, want 10.0", got, ok)
	}
}

func TestLatestVersionUsesSuppliedInfo(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	reg := New(server.URL, nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	info := &PackageInfo{Versions: NewVersions([]string{"3.0", "3.1"}, nil).WithLatest("3.1")}

	if got, ok := reg.LatestVersion(context.Background(), "pkg", info); !ok || got != "3.1" {
		t.Errorf("LatestVersion = %q, %v, want 3.1", got, ok)
	}
	if got := reg.AvailableVersions(context.Background(), "pkg", info); !reflect.DeepEqual(got, []string{"3.0", "3.1"}) {
		t.Errorf("AvailableVersions = %v", got)
	}
	if requests != 0 {
		t.Errorf("requests = %d, want 0", requests)
	}
}

func TestAvailableVersions(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/pkg-a.json": `{"versions":{"2.0":{},"latest":"2.0","1.0":{},"1.5":"old"}}`,
	})
	ctx := context.Background()

	got := reg.AvailableVersions(ctx, "pkg-a", nil)
	want := []string{"2.0", "1.0", "1.5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AvailableVersions = %v, want %v", got, want)
	}

	if got := reg.AvailableVersions(ctx, "missing", nil); got == nil || len(got) != 0 {
		t.Errorf("AvailableVersions(missing) = %#v, want empty slice", got)
	}
}

func TestDownloadURL(t *testing.T) {
	reg, _ := newTestRegistry(t, map[string]string{
		"/packages/pkg-a.json": `{"versions":{"latest":"1.0","1.0":{"download":"http://x/1.0.zip"},"0.9":{},"0.8":"http://x/0.8.zip","0.7":{"download":""},"0.6":{"download":5}}}`,
	})
	ctx := context.Background()

	tests := []struct {
		pkg, version string
		want         string
		wantOK       bool
	}{
		{"pkg-a", "1.0", "http://x/1.0.zip", true},
		{"pkg-a", "9.9", "", false},
		{"pkg-a", "0.9", "", false},
		{"pkg-a", "0.8", "", false},
		{"pkg-a", "0.7", "", true},
		{"pkg-a", "0.6", "", false},
		{"pkg-a", "latest", "", false},
		{"missing", "1.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.pkg+"@"+tt.version, func(t *testing.T) {
			got, ok := reg.DownloadURL(ctx, tt.pkg, tt.version)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("DownloadURL(%q, %q) = %q, %v, want %q, %v", tt.pkg, tt.version, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
