package fetchcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreAndLookup(t *testing.T) {
	cache := New(t.TempDir(), 0, nil)
	key := Key("mast", "Vega", "calspec")

	if err := cache.Store(key, "mast", "vega", "calspec", []byte("payload")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	data, entry, ok := cache.Lookup(key)
	if !ok {
		t.Fatal("Lookup miss after Store")
	}
	if string(data) != "payload" || entry.Archive != "mast" {
		t.Fatalf("got %q, %+v", data, entry)
	}
	if _, _, ok := cache.Lookup(Key("mast", "other", "calspec")); ok {
		t.Fatal("unexpected hit for different target")
	}
}

func TestKeyNormalizesCase(t *testing.T) {
	if Key("MAST", " Vega ", "q") != Key("mast", "vega", "q") {
		t.Fatal("key should ignore case and surrounding space")
	}
	if Key("mast", "vega", "q1") == Key("mast", "vega", "q2") {
		t.Fatal("different queries must produce different keys")
	}
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	key := Key("sdss", "hd 209458", "dr17")

	first := New(dir, 0, nil)
	if err := first.Store(key, "sdss", "hd 209458", "dr17", []byte("spectrum")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	second := New(dir, 0, nil)
	data, _, ok := second.Lookup(key)
	if !ok || string(data) != "spectrum" {
		t.Fatalf("reopened lookup = %q, %v", data, ok)
	}
}

func TestEvictionDropsLeastRecentlyUsed(t *testing.T) {
	cache := New(t.TempDir(), 20, nil)
	clock := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	keyA := Key("mast", "a", "")
	keyB := Key("mast", "b", "")
	keyC := Key("mast", "c", "")
	for _, k := range []struct {
		key    string
		target string
	}{{keyA, "a"}, {keyB, "b"}} {
		if err := cache.Store(k.key, "mast", k.target, "", []byte("0123456789")); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	// Touch A so B becomes the eviction candidate.
	if _, _, ok := cache.Lookup(keyA); !ok {
		t.Fatal("Lookup a")
	}
	if err := cache.Store(keyC, "mast", "c", "", []byte("0123456789")); err != nil {
		t.Fatalf("Store: %v", err)
	}

	if _, _, ok := cache.Lookup(keyB); ok {
		t.Fatal("b should have been evicted")
	}
	if _, _, ok := cache.Lookup(keyA); !ok {
		t.Fatal("a should survive eviction")
	}
	if _, _, ok := cache.Lookup(keyC); !ok {
		t.Fatal("c should survive eviction")
	}
	if stats := cache.Stats(); stats.Entries != 2 || stats.TotalBytes != 20 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLookupDropsMissingBlob(t *testing.T) {
	dir := t.TempDir()
	cache := New(dir, 0, nil)
	key := Key("nist", "h i", "lines")
	if err := cache.Store(key, "nist", "h i", "lines", []byte("x")); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, key+".blob")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, ok := cache.Lookup(key); ok {
		t.Fatal("lookup should miss when blob file is gone")
	}
	if stats := cache.Stats(); stats.Entries != 0 {
		t.Fatalf("entry should be dropped, stats = %+v", stats)
	}
}

func TestClear(t *testing.T) {
	cache := New(t.TempDir(), 0, nil)
	for _, target := range []string{"a", "b", "c"} {
		key := Key("eso", target, "")
		if err := cache.Store(key, "eso", target, "", []byte(target)); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	removed, err := cache.Clear()
	if err != nil || removed != 3 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
	if stats := cache.Stats(); stats.Entries != 0 || stats.TotalBytes != 0 {
		t.Fatalf("stats after clear = %+v", stats)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	cache := New("", 0, nil)
	key := Key("mast", "vega", "")
	if err := cache.Store(key, "mast", "vega", "", []byte("x")); err != nil {
		t.Fatalf("Store on disabled cache: %v", err)
	}
	if _, _, ok := cache.Lookup(key); ok {
		t.Fatal("disabled cache should always miss")
	}
}
