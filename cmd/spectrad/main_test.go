package main

import (
	"testing"

	"spectra/internal/logging"
	"spectra/internal/testsupport"
)

func TestBuildStagesWiresAllHandlers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	stages, err := buildStages(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("buildStages: %v", err)
	}
	if stages.Identifier == nil {
		t.Fatal("identifier stage missing")
	}
	if stages.Parser == nil {
		t.Fatal("parser stage missing")
	}
	if stages.Normalizer == nil {
		t.Fatal("normalizer stage missing")
	}
	if stages.Exporter == nil {
		t.Fatal("exporter stage missing")
	}
}

func TestBuildStagesWithArchivesDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Archives.MAST.Enabled = false
	cfg.Archives.SIMBAD.Enabled = false
	cfg.Archives.SDSS.Enabled = false
	cfg.Archives.ESO.Enabled = false
	store := testsupport.MustOpenStore(t, cfg)

	stages, err := buildStages(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("buildStages: %v", err)
	}
	if stages.Parser == nil {
		t.Fatal("parser stage missing")
	}
}

func TestBuildFetchCacheDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.FetchCache.Enabled = false

	cache := buildFetchCache(cfg, logging.NewNop())
	if cache == nil {
		t.Fatal("expected a no-op cache, got nil")
	}
}
