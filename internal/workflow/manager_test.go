package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muxinc/video-archivist/internal/archive"
	"github.com/muxinc/video-archivist/internal/config"
	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/notifications"
	"github.com/muxinc/video-archivist/internal/queue"
	"github.com/muxinc/video-archivist/internal/services/github"
	"github.com/muxinc/video-archivist/internal/testsupport"
	"github.com/muxinc/video-archivist/internal/transfer"
	"github.com/muxinc/video-archivist/internal/workflow"
)

type stubArchiver struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, sourceURL, prefix string) (string, error)
}

func (s *stubArchiver) Archive(ctx context.Context, sourceURL, prefix string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sourceURL+" -> "+prefix)
	s.mu.Unlock()
	return s.fn(ctx, sourceURL, prefix)
}

type postedComment struct {
	owner, repo string
	number      int
	body        string
}

type fakeReporter struct {
	mu         sync.Mutex
	comments   []postedComment
	login      string
	loginCalls int
	commentErr error
}

func (f *fakeReporter) CreateIssueComment(_ context.Context, owner, repo string, number int, body string) (*github.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	f.comments = append(f.comments, postedComment{owner, repo, number, body})
	return &github.Comment{ID: int64(len(f.comments)), HTMLURL: fmt.Sprintf("https://github.com/%s/%s/issues/%d#c", owner, repo, number)}, nil
}

func (f *fakeReporter) AuthenticatedLogin(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	return f.login, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type harness struct {
	cfg      *config.Config
	store    *queue.Store
	reporter *fakeReporter
	notifier *recordingNotifier
	manager  *workflow.Manager
}

func newHarness(t *testing.T, archiver workflow.Archiver, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{
		cfg:      cfg,
		store:    store,
		reporter: &fakeReporter{login: "mux-archivist"},
		notifier: &recordingNotifier{},
	}
	h.manager = workflow.NewManager(cfg, store, workflow.Dependencies{
		Archiver: archiver,
		Reporter: h.reporter,
		Notifier: h.notifier,
		Logger:   logging.NewNop(),
	})
	return h
}

func (h *harness) enqueue(t *testing.T, url string, withIssue bool) *queue.Item {
	t.Helper()
	req := queue.Request{OfferID: 42, OfferHash: "kX3pQa", SourceURL: url}
	if withIssue {
		req.RepoOwner, req.RepoName, req.IssueNumber = "muxinc", "docs", 17
	}
	return testsupport.NewRequest(t, h.store, req)
}

func (h *harness) runOnce(t *testing.T) {
	t.Helper()
	processed, err := h.manager.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !processed {
		t.Fatal("expected an item to be processed")
	}
}

func (h *harness) reload(t *testing.T, id int64) *queue.Item {
	t.Helper()
	item, err := h.store.GetByID(context.Background(), id)
	if err != nil || item == nil {
		t.Fatalf("GetByID(%d): %v", id, err)
	}
	return item
}

func TestRunOnceEmptyQueue(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		t.Fatal("archiver should not be called")
		return "", nil
	}})
	processed, err := h.manager.RunOnce(context.Background())
	if err != nil || processed {
		t.Fatalf("RunOnce = %v, %v; want false, nil", processed, err)
	}
}

func TestRunOnceCompletesAndComments(t *testing.T) {
	archiveURL := "https://storage.example.test/archive/kX3pQa/playlist.m3u8"
	archiver := &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return archiveURL, nil
	}}
	h := newHarness(t, archiver)
	item := h.enqueue(t, "https://cdn.example.com/live/master.m3u8", true)

	h.runOnce(t)

	got := h.reload(t, item.ID)
	if got.Status != queue.StatusCompleted || got.ArchiveURL != archiveURL {
		t.Fatalf("item = %s %q, want completed with archive url", got.Status, got.ArchiveURL)
	}
	if got.Attempts != 1 || got.LastHeartbeat != nil {
		t.Fatalf("attempts=%d heartbeat=%v", got.Attempts, got.LastHeartbeat)
	}
	if len(archiver.calls) != 1 || archiver.calls[0] != "https://cdn.example.com/live/master.m3u8 -> kX3pQa" {
		t.Fatalf("archiver calls = %v", archiver.calls)
	}
	if len(h.reporter.comments) != 1 {
		t.Fatalf("expected one comment, got %d", len(h.reporter.comments))
	}
	c := h.reporter.comments[0]
	want := github.SuccessComment("kX3pQa", "https://cdn.example.com/live/master.m3u8", archiveURL)
	if c.owner != "muxinc" || c.repo != "docs" || c.number != 17 || c.body != want {
		t.Fatalf("unexpected comment %+v", c)
	}
	if events := h.notifier.Events(); len(events) != 1 || events[0] != notifications.EventArchiveCompleted {
		t.Fatalf("events = %v", events)
	}
	if h.reporter.loginCalls != 0 {
		t.Fatal("bot login should only be resolved for failure comments")
	}
}

func TestRunOnceWithoutIssueSkipsComment(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return "https://storage.example.test/archive/kX3pQa.mp4", nil
	}})
	h.enqueue(t, "https://cdn.example.com/clip.mp4", false)
	h.runOnce(t)
	if len(h.reporter.comments) != 0 {
		t.Fatalf("expected no comments, got %v", h.reporter.comments)
	}
}

func TestRunOnceClassifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus queue.Status
		wantMsg    string
	}{
		{
			name:       "circular playlist is rejected",
			err:        &archive.CircularReferenceError{URL: "https://cdn.example.com/a.m3u8"},
			wantStatus: queue.StatusRejected,
			wantMsg:    "circular reference",
		},
		{
			name:       "missing upstream is rejected",
			err:        &transfer.UpstreamFetchError{URL: "https://cdn.example.com/seg.ts", StatusCode: 404},
			wantStatus: queue.StatusRejected,
			wantMsg:    "404",
		},
		{
			name:       "upstream outage can be retried",
			err:        &transfer.UpstreamFetchError{URL: "https://cdn.example.com/seg.ts", StatusCode: 503},
			wantStatus: queue.StatusFailed,
			wantMsg:    "503",
		},
		{
			name:       "storage failure can be retried",
			err:        &transfer.UploadError{Path: "kX3pQa/playlist.m3u8", Err: errors.New("bucket unavailable")},
			wantStatus: queue.StatusFailed,
			wantMsg:    "bucket unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
				return "", tt.err
			}})
			item := h.enqueue(t, "https://cdn.example.com/a.m3u8", true)
			h.runOnce(t)

			got := h.reload(t, item.ID)
			if got.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if !strings.Contains(got.ErrorMessage, tt.wantMsg) {
				t.Fatalf("error message %q missing %q", got.ErrorMessage, tt.wantMsg)
			}
			if len(h.reporter.comments) != 1 {
				t.Fatalf("expected failure comment, got %d", len(h.reporter.comments))
			}
			body := h.reporter.comments[0].body
			if !strings.Contains(body, "```"+got.ErrorMessage+"\n```") {
				t.Fatalf("failure comment missing error block: %q", body)
			}
			if !strings.Contains(body, "`@mux-archivist save kX3pQa`") {
				t.Fatalf("failure comment missing retry command: %q", body)
			}
			if events := h.notifier.Events(); len(events) != 1 || events[0] != notifications.EventArchiveFailed {
				t.Fatalf("events = %v", events)
			}
		})
	}
}

func TestBotLoginResolvedOnce(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return "", &transfer.UpstreamFetchError{URL: "https://cdn.example.com/x.ts", StatusCode: 500}
	}})
	h.enqueue(t, "https://cdn.example.com/a.m3u8", true)
	h.enqueue(t, "https://cdn.example.com/b.m3u8", true)
	h.runOnce(t)
	h.runOnce(t)
	if h.reporter.loginCalls != 1 {
		t.Fatalf("login lookups = %d, want 1", h.reporter.loginCalls)
	}
}

func TestConfiguredBotUsernameSkipsLookup(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return "", errors.New("boom")
	}}, func(c *config.Config) { c.GitHub.BotUsername = "video-bot" })
	h.enqueue(t, "https://cdn.example.com/a.m3u8", true)
	h.runOnce(t)
	if h.reporter.loginCalls != 0 {
		t.Fatal("expected configured bot username to be used")
	}
	if !strings.Contains(h.reporter.comments[0].body, "@video-bot save") {
		t.Fatalf("unexpected body %q", h.reporter.comments[0].body)
	}
}

func TestArchiveTimeoutFailsItem(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}, func(c *config.Config) { c.Workflow.ArchiveTimeout = 1 })
	item := h.enqueue(t, "https://cdn.example.com/slow.m3u8", false)

	h.runOnce(t)

	got := h.reload(t, item.ID)
	if got.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "deadline exceeded") {
		t.Fatalf("error message = %q", got.ErrorMessage)
	}
}

func TestCommentFailureDoesNotFailItem(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return "https://storage.example.test/archive/kX3pQa/playlist.m3u8", nil
	}})
	h.reporter.commentErr = &github.APIError{StatusCode: 403, Message: "Resource not accessible by integration"}
	item := h.enqueue(t, "https://cdn.example.com/a.m3u8", true)
	h.runOnce(t)
	if got := h.reload(t, item.ID); got.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestRunOnceReclaimsStaleItems(t *testing.T) {
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		return "https://storage.example.test/archive/kX3pQa/playlist.m3u8", nil
	}})
	item := h.enqueue(t, "https://cdn.example.com/a.m3u8", false)
	ctx := context.Background()
	claimed, err := h.store.Claim(ctx, item)
	if err != nil || !claimed {
		t.Fatalf("Claim = %v, %v", claimed, err)
	}
	stale := time.Now().Add(-time.Hour).UTC()
	item.LastHeartbeat = &stale
	if err := h.store.Update(ctx, item); err != nil {
		t.Fatal(err)
	}

	h.runOnce(t)

	got := h.reload(t, item.ID)
	if got.Status != queue.StatusCompleted || got.Attempts != 2 {
		t.Fatalf("item = %s attempts=%d, want completed on second attempt", got.Status, got.Attempts)
	}
}

func TestStartProcessesQueueUntilStopped(t *testing.T) {
	done := make(chan struct{}, 1)
	h := newHarness(t, &stubArchiver{fn: func(context.Context, string, string) (string, error) {
		done <- struct{}{}
		return "https://storage.example.test/archive/kX3pQa/playlist.m3u8", nil
	}})
	item := h.enqueue(t, "https://cdn.example.com/a.m3u8", false)

	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("item was not processed")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got := h.reload(t, item.ID)
		if got.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("item status %s, want completed", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	status := h.manager.Status(context.Background())
	if !status.Running || status.LastItem == nil || status.LastItem.ID != item.ID {
		t.Fatalf("unexpected status %+v", status)
	}
	h.manager.Stop()
	if h.manager.Status(context.Background()).Running {
		t.Fatal("expected manager to stop")
	}
}
