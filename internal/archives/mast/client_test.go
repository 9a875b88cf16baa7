package mast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"spectra/internal/archives"
)

func TestFetchKnownStandard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alpha_lyr_stis_011.fits" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("SIMPLE  =  fake fits payload"))
	}))
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	product, err := client.Fetch(context.Background(), "Vega")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if product.Archive != "mast" || product.FileName != "alpha_lyr_stis_011.fits" {
		t.Fatalf("product = %+v", product)
	}
	if len(product.Data) == 0 || product.Format != "fits" {
		t.Fatalf("payload missing: %+v", product)
	}
}

func TestFetchUnknownTarget(t *testing.T) {
	client, err := New("http://unused.invalid")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.Fetch(context.Background(), "definitely not a standard")
	if !errors.Is(err, archives.ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
}

func TestFetchFileNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = client.FetchFile(context.Background(), "vega", "missing.fits")
	if !errors.Is(err, archives.ErrNoProduct) {
		t.Fatalf("err = %v, want ErrNoProduct", err)
	}
}

func TestResolveUsesCanonicalNames(t *testing.T) {
	file, ok := Resolve("  α Lyr ")
	if !ok || file != "alpha_lyr_stis_011.fits" {
		t.Fatalf("Resolve = %q, %v", file, ok)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
