package parser_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"spectra/internal/archives"
	"spectra/internal/fetchcache"
	"spectra/internal/logging"
	"spectra/internal/parser"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/spectrum"
	"spectra/internal/testsupport"
)

type stubFetcher struct {
	name    string
	product *archives.Product
	err     error
	calls   int
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context, target string) (*archives.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func TestParserParsesASCIIFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(cfg.Paths.IncomingDir, "vega.txt")
	testsupport.WriteFile(t, path, testsupport.ASCIISpectrum())
	item, err := store.NewFile(ctx, path, "")
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	item.FormatHint = "ascii"
	item.Status = queue.StatusIdentified

	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logging.NewNop())
	stage := parser.New(cfg, store, logging.NewNop(), archives.NewRegistry(), cache)
	if err := stage.Prepare(ctx, item); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := stage.Execute(ctx, item); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if item.Status != queue.StatusParsed {
		t.Fatalf("expected parsed status, got %s", item.Status)
	}
	spec, err := spectrum.ReadFile(item.ParsedFile)
	if err != nil {
		t.Fatalf("read staged spectrum: %v", err)
	}
	if spec.Len() != 5 {
		t.Fatalf("expected 5 samples, got %d", spec.Len())
	}
	if spec.WavelengthUnit != "nm" {
		t.Fatalf("expected nm unit hint from header, got %q", spec.WavelengthUnit)
	}
	if item.ProvenanceJSON == "" {
		t.Fatal("expected provenance trace on item")
	}
}

func TestParserSniffsFormatWithoutHint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	jcamp := []byte("##TITLE=Test\n##JCAMP-DX=4.24\n##XUNITS=NANOMETERS\n##YUNITS=ARBITRARY\n" +
		"##NPOINTS=3\n##XYPOINTS=(XY..XY)\n400,1.0; 410,1.5; 420,1.2\n##END=\n")
	path := filepath.Join(cfg.Paths.IncomingDir, "sample.jdx")
	testsupport.WriteFile(t, path, jcamp)
	item, err := store.NewFile(ctx, path, "")
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	item.Status = queue.StatusIdentified

	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logging.NewNop())
	stage := parser.New(cfg, store, logging.NewNop(), archives.NewRegistry(), cache)
	if err := stage.Execute(ctx, item); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if item.FormatHint != "jcamp" {
		t.Fatalf("expected sniffed jcamp hint, got %q", item.FormatHint)
	}
}

func TestParserFetchesArchiveProductOnceThenCaches(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fetcher := &stubFetcher{
		name: "stub",
		product: &archives.Product{
			Archive:     "stub",
			Target:      "vega",
			FileName:    "vega.txt",
			Format:      "ascii",
			Data:        testsupport.ASCIISpectrum(),
			RetrievedAt: time.Now().UTC(),
		},
	}
	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logging.NewNop())
	stage := parser.New(cfg, store, logging.NewNop(), archives.NewRegistry(fetcher), cache)

	fingerprints := make([]string, 0, 2)
	for i := 0; i < 2; i++ {
		item, err := store.NewFetch(ctx, "stub", "vega", nil)
		if err != nil {
			t.Fatalf("new fetch: %v", err)
		}
		item.Status = queue.StatusIdentified
		if err := stage.Execute(ctx, item); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
		if item.Status != queue.StatusParsed {
			t.Fatalf("expected parsed status, got %s", item.Status)
		}
		if item.Fingerprint == "" {
			t.Fatalf("item %d has no fingerprint", i)
		}
		fingerprints = append(fingerprints, item.Fingerprint)
	}

	if fetcher.calls != 1 {
		t.Fatalf("expected one archive fetch with cache serving the second, got %d", fetcher.calls)
	}
	if fingerprints[0] != fingerprints[1] {
		t.Fatalf("cached product fingerprint %q differs from fetched %q", fingerprints[1], fingerprints[0])
	}
}

func TestParserReportsMissingProduct(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	fetcher := &stubFetcher{name: "stub", err: archives.ErrNoProduct}
	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logging.NewNop())
	stage := parser.New(cfg, store, logging.NewNop(), archives.NewRegistry(fetcher), cache)

	item, err := store.NewFetch(ctx, "stub", "nonesuch", nil)
	if err != nil {
		t.Fatalf("new fetch: %v", err)
	}
	item.Status = queue.StatusIdentified
	if err := stage.Execute(ctx, item); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestParserRejectsUnknownArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	cache := fetchcache.New(cfg.FetchCache.Dir, 16<<20, logging.NewNop())
	stage := parser.New(cfg, store, logging.NewNop(), archives.NewRegistry(), cache)

	item, err := store.NewFetch(ctx, "ghost", "vega", nil)
	if err != nil {
		t.Fatalf("new fetch: %v", err)
	}
	item.Status = queue.StatusIdentified
	if err := stage.Execute(ctx, item); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
