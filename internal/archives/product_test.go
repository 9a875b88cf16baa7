package archives

import (
	"context"
	"testing"
)

type namedFetcher string

func (n namedFetcher) Name() string { return string(n) }
func (n namedFetcher) Fetch(ctx context.Context, target string) (*Product, error) {
	return &Product{Archive: string(n), Target: target}, nil
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(namedFetcher("MAST"), namedFetcher("sdss"), nil, namedFetcher("mast"))

	names := reg.Names()
	if len(names) != 2 || names[0] != "mast" || names[1] != "sdss" {
		t.Fatalf("names = %v", names)
	}
	if _, ok := reg.Get(" Mast "); !ok {
		t.Fatal("lookup should be case and space insensitive")
	}
	if _, ok := reg.Get("eso"); ok {
		t.Fatal("unexpected fetcher for unregistered archive")
	}
}
