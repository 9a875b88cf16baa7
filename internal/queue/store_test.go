package queue_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spectra/internal/queue"
	"spectra/internal/testsupport"
)

func TestNewFileAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFile(ctx, filepath.Join("incoming", "vega_calspec.fits"), "abc123")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if item.Status != queue.StatusPending || item.SourceKind != queue.SourceFile {
		t.Fatalf("item = %+v", item)
	}
	if item.TargetName != "vega calspec" {
		t.Fatalf("target = %q", item.TargetName)
	}

	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Fingerprint != "abc123" {
		t.Fatalf("got = %+v", got)
	}

	missing, err := store.GetByID(ctx, item.ID+999)
	if err != nil || missing != nil {
		t.Fatalf("missing lookup = %+v, %v", missing, err)
	}
}

func TestNewFetchValidation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFetch(ctx, "MAST", "Vega", map[string]string{"file": "alpha_lyr_stis_011.fits"})
	if err != nil {
		t.Fatalf("NewFetch: %v", err)
	}
	if item.SourceKind != queue.SourceArchive || item.ArchiveName != "mast" {
		t.Fatalf("item = %+v", item)
	}
	if item.ArchiveQueryJSON == "" {
		t.Fatal("archive query should be recorded")
	}

	if _, err := store.NewFetch(ctx, "", "vega", nil); err == nil {
		t.Fatal("expected error for empty archive")
	}
	if _, err := store.NewFetch(ctx, "mast", " ", nil); err == nil {
		t.Fatal("expected error for empty target")
	}
}

func TestFindByFingerprint(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.NewFile(ctx, "a.txt", "fp-1"); err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	item, err := store.FindByFingerprint(ctx, "fp-1")
	if err != nil || item == nil {
		t.Fatalf("FindByFingerprint = %+v, %v", item, err)
	}
	none, err := store.FindByFingerprint(ctx, "fp-2")
	if err != nil || none != nil {
		t.Fatalf("unexpected match: %+v, %v", none, err)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFile(ctx, "spectrum.jdx", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	heartbeat := time.Now().UTC()
	item.Status = queue.StatusParsing
	item.FormatHint = "jcamp"
	item.ParsedFile = "/staging/1/parsed.json"
	item.ProvenanceJSON = `{"version":1}`
	item.SetProgress("Parsing", "reading labelled records", 40)
	item.LastHeartbeat = &heartbeat

	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusParsing || got.FormatHint != "jcamp" {
		t.Fatalf("got = %+v", got)
	}
	if got.ProgressPercent != 40 || got.LastHeartbeat == nil {
		t.Fatalf("progress = %+v", got)
	}
}

func TestNextForStatusesOrdersByCreation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := store.NewFile(ctx, "first.txt", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if _, err := store.NewFile(ctx, "second.txt", ""); err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want id %d", next, first.ID)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusExporting)
	if err != nil || none != nil {
		t.Fatalf("unexpected item: %+v, %v", none, err)
	}
}

func TestResetStuckProcessingRollsBack(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFile(ctx, "stuck.fits", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	item.Status = queue.StatusNormalizing
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	affected, err := store.ResetStuckProcessing(ctx)
	if err != nil || affected != 1 {
		t.Fatalf("ResetStuckProcessing = %d, %v", affected, err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusParsed {
		t.Fatalf("status = %s, want parsed", got.Status)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFile(ctx, "stale.fits", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	old := time.Now().UTC().Add(-time.Hour)
	item.Status = queue.StatusIdentifying
	item.LastHeartbeat = &old
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	affected, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil || affected != 1 {
		t.Fatalf("ReclaimStaleProcessing = %d, %v", affected, err)
	}
	got, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending || got.LastHeartbeat != nil {
		t.Fatalf("got = %+v", got)
	}
}

func TestReclaimSkipsFreshHeartbeats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	item, err := store.NewFile(ctx, "fresh.fits", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	item.Status = queue.StatusParsing
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	affected, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil || affected != 0 {
		t.Fatalf("ReclaimStaleProcessing = %d, %v", affected, err)
	}
}

func TestRetryFailedIncludesReview(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	failed, err := store.NewFile(ctx, "failed.fits", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	failed.SetFailed("parse exploded")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	review, err := store.NewFile(ctx, "review.fits", "")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	review.Status = queue.StatusReview
	review.NeedsReview = true
	review.ReviewReason = "unknown unit"
	if err := store.Update(ctx, review); err != nil {
		t.Fatalf("Update: %v", err)
	}

	affected, err := store.RetryFailed(ctx)
	if err != nil || affected != 2 {
		t.Fatalf("RetryFailed = %d, %v", affected, err)
	}
	got, err := store.GetByID(ctx, review.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending || got.NeedsReview || got.ReviewReason != "" {
		t.Fatalf("got = %+v", got)
	}
}

func TestStatsAndHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, status := range []queue.Status{
		queue.StatusPending, queue.StatusParsing, queue.StatusCompleted, queue.StatusFailed, queue.StatusReview,
	} {
		item, err := store.NewFile(ctx, "x-"+string(status), "")
		if err != nil {
			t.Fatalf("NewFile: %v", err)
		}
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	want := queue.HealthSummary{Total: 5, Pending: 1, Processing: 1, Failed: 1, Review: 1, Completed: 1}
	if health != want {
		t.Fatalf("health = %+v, want %+v", health, want)
	}
}

func TestCheckHealth(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("health = %+v", health)
	}
	if !health.IntegrityCheck || len(health.MissingColumns) != 0 {
		t.Fatalf("health = %+v", health)
	}
}

func TestClearVariants(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	completed, _ := store.NewFile(ctx, "done.fits", "")
	completed.Status = queue.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.NewFile(ctx, "pending.fits", ""); err != nil {
		t.Fatalf("NewFile: %v", err)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearCompleted = %d, %v", removed, err)
	}
	removed, err = store.Clear(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Parsing "); !ok || status != queue.StatusParsing {
		t.Fatalf("ParseStatus = %q, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("unknown status should not parse")
	}
}
