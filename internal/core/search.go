package core

import (
	"context"
	"strings"
	"sync"
)

// Search returns every package whose name, description or author contains
// query, case-insensitively. Packages whose metadata cannot be fetched or
// is an empty object are skipped. An unreachable index yields an empty result.
//
// Package metadata is fetched with at most r.concurrency requests in flight;
// which packages match does not depend on fetch order.
func (r *Registry) Search(ctx context.Context, query string) SearchResult {
	results := make(SearchResult)

	names := r.ListPackageNames(ctx)
	if len(names) == 0 {
		return results
	}

	needle := strings.ToLower(query)
	var mu sync.Mutex
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			info := r.PackageInfo(ctx, name)
			if info == nil || info.IsEmpty() || !Matches(needle, name, info) {
				return
			}

			m := r.match(ctx, name, info)
			mu.Lock()
			results[name] = m
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// Matches reports whether needle, already lower-cased, occurs in the
// package's name, description or author.
func Matches(needle, name string, info *PackageInfo) bool {
	if strings.Contains(strings.ToLower(name), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(info.Description), needle) ||
		strings.Contains(strings.ToLower(info.Author), needle)
}

func (r *Registry) match(ctx context.Context, name string, info *PackageInfo) Match {
	latest, ok := r.LatestVersion(ctx, name, info)
	if !ok || latest == "" {
		latest = UnknownVersion
	}
	return Match{
		Latest:   latest,
		Versions: r.AvailableVersions(ctx, name, info),
	}
}
