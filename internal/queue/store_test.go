package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/testsupport"
)

func newRequest(t *testing.T, store *queue.Store, hash, url string) *queue.Item {
	t.Helper()
	item, err := store.NewRequest(context.Background(), queue.Request{
		OfferID:     7,
		OfferHash:   hash,
		SourceURL:   url,
		RepoOwner:   "muxinc",
		RepoName:    "demo",
		IssueNumber: 12,
	})
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return item
}

func TestNewRequestPersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := newRequest(t, store, "abc123", "https://example.com/v/master.m3u8")
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("status = %s", item.Status)
	}
	if item.DestinationPrefix != "abc123" {
		t.Fatalf("destination prefix should default to hash, got %q", item.DestinationPrefix)
	}
	if !item.HasIssue() || item.Repo() != "muxinc/demo" || item.IssueNumber != 12 {
		t.Fatalf("issue fields not persisted: %#v", item)
	}

	found, err := store.FindByOfferHash(ctx, "abc123")
	if err != nil {
		t.Fatalf("FindByOfferHash failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
	missing, err := store.FindByOfferHash(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("FindByOfferHash(nope) = %#v, %v", missing, err)
	}
}

func TestNewRequestValidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	cases := []queue.Request{
		{OfferHash: "h"},
		{OfferHash: "h", SourceURL: "ftp://x/y.mp4"},
		{SourceURL: "https://x/y.mp4"},
		{OfferHash: "h", SourceURL: "https://x/y.mp4", RepoOwner: "a"},
		{OfferHash: "h", SourceURL: "https://x/y.mp4", RepoOwner: "a", RepoName: "b"},
	}
	for _, req := range cases {
		if _, err := store.NewRequest(context.Background(), req); !errors.Is(err, queue.ErrInvalidRequest) {
			t.Fatalf("NewRequest(%+v) error = %v, want ErrInvalidRequest", req, err)
		}
	}
}

func TestClaimAndComplete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := newRequest(t, store, "abc123", "https://example.com/v.mp4")
	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil || next == nil || next.ID != item.ID {
		t.Fatalf("NextForStatuses = %#v, %v", next, err)
	}

	claimed, err := store.Claim(ctx, next)
	if err != nil || !claimed {
		t.Fatalf("Claim = %v, %v", claimed, err)
	}
	again, err := store.Claim(ctx, item)
	if err != nil || again {
		t.Fatalf("second Claim = %v, %v; want false", again, err)
	}
	if next.Attempts != 1 || next.LastHeartbeat == nil {
		t.Fatalf("claimed item not updated: %#v", next)
	}

	next.SetCompleted("https://cdn/vids/abc123.mp4")
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted || fetched.ArchiveURL != "https://cdn/vids/abc123.mp4" || fetched.Attempts != 1 {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("heartbeat should be cleared on completion")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := newRequest(t, store, "a", "https://example.com/a.mp4")
	if _, err := store.Claim(ctx, item); err != nil {
		t.Fatal(err)
	}
	done := newRequest(t, store, "b", "https://example.com/b.mp4")
	done.SetCompleted("https://cdn/b.mp4")
	if err := store.Update(ctx, done); err != nil {
		t.Fatal(err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 item reset, got %d", count)
	}
	fetched, _ := store.GetByID(ctx, item.ID)
	if fetched.Status != queue.StatusPending || fetched.LastHeartbeat != nil {
		t.Fatalf("unexpected reset item: %#v", fetched)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale := newRequest(t, store, "stale", "https://example.com/a.mp4")
	fresh := newRequest(t, store, "fresh", "https://example.com/b.mp4")
	for _, item := range []*queue.Item{stale, fresh} {
		if _, err := store.Claim(ctx, item); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-10 * time.Minute)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatal(err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", count)
	}
	got, _ := store.GetByID(ctx, stale.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("stale item status = %s", got.Status)
	}
	got, _ = store.GetByID(ctx, fresh.ID)
	if got.Status != queue.StatusArchiving {
		t.Fatalf("fresh item status = %s", got.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	failed := newRequest(t, store, "f", "https://example.com/f.mp4")
	failed.SetFailed(queue.StatusFailed, "fetch failed")
	rejected := newRequest(t, store, "r", "https://example.com/r.m3u8")
	rejected.SetFailed(queue.StatusRejected, "circular reference")
	for _, item := range []*queue.Item{failed, rejected} {
		if err := store.Update(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	count, err := store.RetryFailed(ctx)
	if err != nil || count != 1 {
		t.Fatalf("RetryFailed() = %d, %v; want 1", count, err)
	}
	got, _ := store.GetByID(ctx, failed.ID)
	if got.Status != queue.StatusPending || got.ErrorMessage != "" {
		t.Fatalf("retried item = %#v", got)
	}

	count, err = store.RetryFailed(ctx, rejected.ID)
	if err != nil || count != 1 {
		t.Fatalf("RetryFailed(id) = %d, %v; want 1", count, err)
	}
}

func TestHealthAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newRequest(t, store, "p", "https://example.com/p.mp4")
	done := newRequest(t, store, "c", "https://example.com/c.mp4")
	done.SetCompleted("https://cdn/c.mp4")
	if err := store.Update(ctx, done); err != nil {
		t.Fatal(err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Completed != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}

	db, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !db.DatabaseExists || !db.TableExists || !db.IntegrityCheck || len(db.MissingColumns) != 0 {
		t.Fatalf("unexpected database health: %#v", db)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearCompleted = %d, %v", removed, err)
	}
	items, err := store.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("List = %d items, %v", len(items), err)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Archiving "); !ok || status != queue.StatusArchiving {
		t.Fatalf("ParseStatus = %v, %v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("unknown status should not parse")
	}
}

type kindError string

func (k kindError) Error() string     { return string(k) }
func (k kindError) ErrorKind() string { return string(k) }

func TestFailureStatus(t *testing.T) {
	if got := queue.FailureStatus(kindError("validation")); got != queue.StatusRejected {
		t.Fatalf("validation -> %s", got)
	}
	if got := queue.FailureStatus(errors.New("x")); got != queue.StatusFailed {
		t.Fatalf("plain -> %s", got)
	}
}
