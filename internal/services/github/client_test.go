package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateIssueCommentPostsBody(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/muxinc/demo/issues/12/comments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":99,"html_url":"https://github.com/muxinc/demo/issues/12#issuecomment-99"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", server.Client())
	comment, err := client.CreateIssueComment(context.Background(), "muxinc", "demo", 12, "hello")
	if err != nil {
		t.Fatalf("CreateIssueComment returned error: %v", err)
	}
	if comment.ID != 99 {
		t.Fatalf("comment id = %d", comment.ID)
	}
	if gotBody["body"] != "hello" {
		t.Fatalf("posted body = %v", gotBody)
	}
}

func TestCreateIssueCommentAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "tok", nil).CreateIssueComment(context.Background(), "a", "b", 1, "x")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not found APIError", err)
	}
	if !strings.Contains(err.Error(), "Not Found") {
		t.Fatalf("error message = %q", err.Error())
	}
}

func TestComments(t *testing.T) {
	ok := SuccessComment("abc123", "https://x/v.m3u8", "https://cdn/abc123/playlist.m3u8")
	want := "OK, we've archived abc123 (https://x/v.m3u8) over at https://cdn/abc123/playlist.m3u8 and we'll keep it there for future reference."
	if ok != want {
		t.Fatalf("SuccessComment = %q", ok)
	}
	fail := FailureComment("abc123", "https://x/v.m3u8", "fetch failed\n", "@archivist")
	for _, fragment := range []string{"archive https://x/v.m3u8 failed", "```fetch failed\n```", "`@archivist save abc123`"} {
		if !strings.Contains(fail, fragment) {
			t.Fatalf("FailureComment missing %q:\n%s", fragment, fail)
		}
	}
}

func TestAuthenticatedLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"login":"archive-bot"}`))
	}))
	defer server.Close()

	login, err := NewClient(server.URL, "tok", nil).AuthenticatedLogin(context.Background())
	if err != nil {
		t.Fatalf("AuthenticatedLogin returned error: %v", err)
	}
	if login != "archive-bot" {
		t.Fatalf("login = %q", login)
	}
}
