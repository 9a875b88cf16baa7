package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"spectra/internal/api"
	"spectra/internal/config"
	"spectra/internal/testsupport"
)

// writeTestConfig materializes a temp-dir config on disk so commands load it
// through the --config flag like a real invocation would.
func writeTestConfig(t *testing.T) (string, *config.Config) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	testsupport.WriteFile(t, path, data)
	return path, cfg
}

// runCommand executes the CLI with a dead socket path so queue commands fall
// back to direct database access.
func runCommand(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	socket := filepath.Join(t.TempDir(), "missing.sock")
	full := append([]string{"--config", cfgPath, "--socket", socket}, args...)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), err
}

func TestQueueStatusEmptyQueue(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := runCommand(t, cfgPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Queue is empty")) {
		t.Fatalf("output = %q, want empty-queue message", out)
	}
}

func TestAddListShowRemove(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	spectrum := filepath.Join(cfg.Paths.StagingDir, "vega_demo.txt")
	testsupport.WriteFile(t, spectrum, testsupport.ASCIISpectrum())

	out, err := runCommand(t, cfgPath, "add", spectrum)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Queued vega_demo.txt as item 1")) {
		t.Fatalf("add output = %q", out)
	}

	out, err = runCommand(t, cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("vega_demo.txt")) {
		t.Fatalf("list output = %q, want queued file", out)
	}

	out, err = runCommand(t, cfgPath, "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Pending")) {
		t.Fatalf("show output = %q, want pending status", out)
	}

	out, err = runCommand(t, cfgPath, "queue", "remove", "1")
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Removed item 1")) {
		t.Fatalf("remove output = %q", out)
	}
}

func TestAddRejectsUnsupportedExtension(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	bogus := filepath.Join(cfg.Paths.StagingDir, "notes.pdf")
	testsupport.WriteFile(t, bogus, []byte("not a spectrum"))

	if _, err := runCommand(t, cfgPath, "add", bogus); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestShowMissingItem(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	if _, err := runCommand(t, cfgPath, "show", "42"); err == nil {
		t.Fatal("expected error for missing queue item")
	}
}

func TestQueueClear(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	spectrum := filepath.Join(cfg.Paths.StagingDir, "sirius.csv")
	testsupport.WriteFile(t, spectrum, testsupport.ASCIISpectrum())
	if _, err := runCommand(t, cfgPath, "add", spectrum); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCommand(t, cfgPath, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Removed 1 item(s)")) {
		t.Fatalf("clear output = %q", out)
	}
}

func TestQueueClearFlagConflict(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	if _, err := runCommand(t, cfgPath, "queue", "clear", "--completed", "--failed"); err == nil {
		t.Fatal("expected error for conflicting clear flags")
	}
}

func TestQueueHealthCounts(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	spectrum := filepath.Join(cfg.Paths.StagingDir, "arcturus.dat")
	testsupport.WriteFile(t, spectrum, testsupport.ASCIISpectrum())
	if _, err := runCommand(t, cfgPath, "add", spectrum); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCommand(t, cfgPath, "queue", "health")
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("Pending")) {
		t.Fatalf("health output = %q, want pending row", out)
	}
}

func TestFetchQueuesArchiveItem(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := runCommand(t, cfgPath, "fetch", "MAST", "Vega", "--param", "instrument=STIS")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte(`Queued mast fetch for "Vega" as item 1`)) {
		t.Fatalf("fetch output = %q", out)
	}
}

func TestFetchRejectsBadParam(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	if _, err := runCommand(t, cfgPath, "fetch", "mast", "Vega", "--param", "no-equals"); err == nil {
		t.Fatal("expected error for malformed query parameter")
	}
}

func TestParseItemIDs(t *testing.T) {
	ids, err := parseItemIDs([]string{"3", "7"})
	if err != nil {
		t.Fatalf("parseItemIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Fatalf("ids = %v", ids)
	}

	if _, err := parseItemIDs([]string{"abc"}); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := parseItemIDs([]string{"0"}); err == nil {
		t.Fatal("expected error for zero id")
	}
}

func TestQueueListJSONOutput(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	spectrum := filepath.Join(cfg.Paths.StagingDir, "deneb.tsv")
	testsupport.WriteFile(t, spectrum, testsupport.ASCIISpectrum())
	if _, err := runCommand(t, cfgPath, "add", spectrum); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, err := runCommand(t, cfgPath, "--json", "queue", "list")
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var items []api.QueueItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode json: %v\noutput: %s", err, out)
	}
	if len(items) != 1 || items[0].SourcePath != spectrum {
		t.Fatalf("items = %+v", items)
	}
}

func TestConfigShow(t *testing.T) {
	cfgPath, cfg := writeTestConfig(t)

	out, err := runCommand(t, cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte(cfg.Paths.LibraryDir)) {
		t.Fatalf("output = %q, want library dir", out)
	}
}
