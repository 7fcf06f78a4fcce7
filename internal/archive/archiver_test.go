package archive_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muxinc/video-archivist/internal/archive"
	"github.com/muxinc/video-archivist/internal/playlist"
	"github.com/muxinc/video-archivist/internal/testsupport"
	"github.com/muxinc/video-archivist/internal/transfer"
)

const (
	hlsType = "application/vnd.apple.mpegurl"
	cdnBase = "https://cdn.test"
)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id%02d", n.Add(1))
	}
}

func newArchiver(bucket *testsupport.MemoryBucket, opts archive.Options) *archive.Archiver {
	if opts.NewID == nil {
		opts.NewID = sequentialIDs()
	}
	return archive.New(transfer.NewClient(5*time.Second, "test"), bucket, cdnBase, opts)
}

func manifest(lines ...string) testsupport.MediaFile {
	return testsupport.MediaFile{Body: strings.Join(lines, "\n") + "\n", ContentType: hlsType}
}

func objectText(t *testing.T, bucket *testsupport.MemoryBucket, path string) string {
	t.Helper()
	obj, ok := bucket.Object(path)
	if !ok {
		t.Fatalf("object %s not found; have %v", path, bucket.Paths())
	}
	return string(obj.Data)
}

func TestArchivePlaylistRewritesNestedTree(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/v/master.m3u8", manifest(
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",URI="audio/en.m3u8"`,
		`#EXT-X-STREAM-INF:BANDWIDTH=800000,AUDIO="aud"`,
		"low/index.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=1600000,AUDIO="aud"`,
		"high/index.m3u8",
	))
	srv.Set("/v/audio/en.m3u8", manifest(
		"#EXTM3U",
		"#EXTINF:4.0,",
		"a0.aac",
		"#EXT-X-ENDLIST",
	))
	srv.Set("/v/low/index.m3u8", manifest(
		"#EXTM3U",
		"#EXT-X-TARGETDURATION:4",
		`#EXT-X-MAP:URI="init.mp4"`,
		"#EXTINF:4.0,",
		"seg0.m4s",
		"",
		"#EXTINF:4.0,",
		"seg1.m4s?token=abc",
		"#EXT-X-ENDLIST",
	))
	srv.Set("/v/high/index.m3u8", manifest(
		"#EXTM3U",
		fmt.Sprintf(`#EXT-X-KEY:METHOD=AES-128,URI="%s",IV=0x01`, srv.URL("/keys/k.bin")),
		"#EXTINF:4.0,",
		"  seg.ts  ",
		"#EXT-X-ENDLIST",
	))
	for path, body := range map[string]string{
		"/v/audio/a0.aac": "aac",
		"/v/low/init.mp4": "init",
		"/v/low/seg0.m4s": "s0",
		"/v/low/seg1.m4s": "s1",
		"/keys/k.bin":     "key",
		"/v/high/seg.ts":  "ts",
	} {
		srv.Set(path, testsupport.MediaFile{Body: body, ContentType: "video/mp2t"})
	}

	bucket := testsupport.NewMemoryBucket("vids")
	url, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/v/master.m3u8"), "abc123")
	if err != nil {
		t.Fatalf("ArchivePlaylist returned error: %v", err)
	}
	if url != cdnBase+"/vids/abc123/playlist.m3u8" {
		t.Fatalf("url = %q", url)
	}

	wantRoot := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-VERSION:3",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",NAME="English",URI="1.m3u8"`,
		`#EXT-X-STREAM-INF:BANDWIDTH=800000,AUDIO="aud"`,
		"2.m3u8",
		`#EXT-X-STREAM-INF:BANDWIDTH=1600000,AUDIO="aud"`,
		"3.m3u8",
	}, "\n") + "\n"
	if got := objectText(t, bucket, "abc123/playlist.m3u8"); got != wantRoot {
		t.Fatalf("root manifest:\n%s\nwant:\n%s", got, wantRoot)
	}

	wantLow := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-TARGETDURATION:4",
		`#EXT-X-MAP:URI="0002-EXT-URI-id02.mp4"`,
		"#EXTINF:4.0,",
		"0002-FILE-id03.m4s",
		"",
		"#EXTINF:4.0,",
		"0002-FILE-id04.m4s",
		"#EXT-X-ENDLIST",
	}, "\n") + "\n"
	if got := objectText(t, bucket, "abc123/2.m3u8"); got != wantLow {
		t.Fatalf("low manifest:\n%s\nwant:\n%s", got, wantLow)
	}

	high := objectText(t, bucket, "abc123/3.m3u8")
	if !strings.Contains(high, `URI="0003-EXT-URI-id05.bin",IV=0x01`) || !strings.Contains(high, "\n0003-FILE-id06.ts\n") {
		t.Fatalf("high manifest not rewritten:\n%s", high)
	}
	if !strings.Contains(objectText(t, bucket, "abc123/1.m3u8"), "\n0001-FILE-id01.aac\n") {
		t.Fatal("audio manifest not rewritten")
	}

	leaves := map[string]string{
		"abc123/0001-FILE-id01.aac":    "aac",
		"abc123/0002-EXT-URI-id02.mp4": "init",
		"abc123/0002-FILE-id03.m4s":    "s0",
		"abc123/0002-FILE-id04.m4s":    "s1",
		"abc123/0003-EXT-URI-id05.bin": "key",
		"abc123/0003-FILE-id06.ts":     "ts",
	}
	for path, body := range leaves {
		if got := objectText(t, bucket, path); got != body {
			t.Errorf("%s = %q, want %q", path, got, body)
		}
	}
	obj, _ := bucket.Object("abc123/playlist.m3u8")
	if obj.ContentType != hlsType {
		t.Fatalf("manifest content type = %q", obj.ContentType)
	}
	if got := len(bucket.Paths()); got != 10 {
		t.Fatalf("stored %d objects, want 10: %v", got, bucket.Paths())
	}
}

func TestArchivePlaylistLeavesUnquotedURIAndPassthroughLines(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/m.m3u8", manifest(
		"#EXTM3U",
		"#EXT-X-CUSTOM:URI=bare.bin,uri=\"lower.bin\"",
		"#EXTINF:10,title, with comma",
	))
	srv.Set("/lower.bin", testsupport.MediaFile{Body: "l"})

	bucket := testsupport.NewMemoryBucket("vids")
	if _, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/m.m3u8"), "p"); err != nil {
		t.Fatalf("ArchivePlaylist returned error: %v", err)
	}
	want := "#EXTM3U\n#EXT-X-CUSTOM:URI=bare.bin,uri=\"0000-EXT-uri-id01.bin\"\n#EXTINF:10,title, with comma\n"
	if got := objectText(t, bucket, "p/playlist.m3u8"); got != want {
		t.Fatalf("manifest = %q, want %q", got, want)
	}
	if srv.Hits("/bare.bin") != 0 {
		t.Fatal("unquoted URI value should not be fetched")
	}
}

func TestArchivePlaylistCircularReference(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/c/a.m3u8", manifest("#EXTM3U", "b.m3u8"))
	srv.Set("/c/b.m3u8", manifest("#EXTM3U", "a.m3u8"))

	bucket := testsupport.NewMemoryBucket("vids")
	_, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/c/a.m3u8"), "p")
	var circular *archive.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("error = %v, want CircularReferenceError", err)
	}
	if circular.URL != srv.URL("/c/a.m3u8") {
		t.Fatalf("URL = %q", circular.URL)
	}
	if _, ok := bucket.Object("p/playlist.m3u8"); ok {
		t.Fatal("root manifest should not be uploaded")
	}
	if a, b := srv.Hits("/c/a.m3u8"), srv.Hits("/c/b.m3u8"); a != 1 || b != 1 {
		t.Fatalf("manifest fetches a=%d b=%d, want one each", a, b)
	}
}

func TestArchivePlaylistSelfReference(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/self.m3u8", manifest("#EXTM3U", "self.m3u8"))

	_, err := newArchiver(testsupport.NewMemoryBucket("vids"), archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/self.m3u8"), "p")
	var circular *archive.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("error = %v, want CircularReferenceError", err)
	}
	if got := srv.Hits("/self.m3u8"); got != 1 {
		t.Fatalf("self.m3u8 fetched %d times, want 1", got)
	}
}

func TestArchivePlaylistRepeatedChildIsCircular(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/root.m3u8", manifest("#EXTM3U", "v.m3u8", "v.m3u8"))
	srv.Set("/v.m3u8", manifest("#EXTM3U"))

	_, err := newArchiver(testsupport.NewMemoryBucket("vids"), archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/root.m3u8"), "p")
	var circular *archive.CircularReferenceError
	if !errors.As(err, &circular) {
		t.Fatalf("error = %v, want CircularReferenceError", err)
	}
	if got := srv.Hits("/v.m3u8"); got != 1 {
		t.Fatalf("v.m3u8 fetched %d times, want 1", got)
	}
}

func TestArchivePlaylistPreservesCRLF(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/crlf/m.m3u8", testsupport.MediaFile{
		Body:        "#EXTM3U\r\n#EXT-X-KEY:METHOD=AES-128,URI=\"key.bin\"\r\n#EXTINF:4,\r\nseg.ts\r\n",
		ContentType: hlsType,
	})
	srv.Set("/crlf/key.bin", testsupport.MediaFile{Body: "key"})
	srv.Set("/crlf/seg.ts", testsupport.MediaFile{Body: "ts"})

	bucket := testsupport.NewMemoryBucket("vids")
	if _, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/crlf/m.m3u8"), "p"); err != nil {
		t.Fatalf("ArchivePlaylist returned error: %v", err)
	}
	want := "#EXTM3U\r\n#EXT-X-KEY:METHOD=AES-128,URI=\"0000-EXT-URI-id01.bin\"\r\n#EXTINF:4,\r\n0000-FILE-id02.ts\r\n"
	if got := objectText(t, bucket, "p/playlist.m3u8"); got != want {
		t.Fatalf("manifest = %q, want %q", got, want)
	}
	if srv.Hits("/crlf/key.bin") != 1 {
		t.Fatal("key was not archived")
	}
	if got := objectText(t, bucket, "p/0000-EXT-URI-id01.bin"); got != "key" {
		t.Fatalf("key object = %q", got)
	}
}

func TestArchivePlaylistSequenceIgnoresLeafTiming(t *testing.T) {
	for run := 0; run < 5; run++ {
		srv := testsupport.NewMediaServer(t, nil)
		srv.Set("/t/root.m3u8", manifest("#EXTM3U", "r.ts", "a.m3u8", "b.m3u8"))
		srv.Set("/t/a.m3u8", manifest("#EXTM3U", "a.ts"))
		srv.Set("/t/b.m3u8", manifest("#EXTM3U", "b.ts", "g.m3u8"))
		srv.Set("/t/g.m3u8", manifest("#EXTM3U", "g.ts"))
		for _, leaf := range []string{"r", "a", "b", "g"} {
			srv.Set("/t/"+leaf+".ts", testsupport.MediaFile{
				Body:  leaf,
				Delay: time.Duration(rand.IntN(40)) * time.Millisecond,
			})
		}

		bucket := testsupport.NewMemoryBucket("vids")
		if _, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/t/root.m3u8"), "p"); err != nil {
			t.Fatalf("run %d: ArchivePlaylist returned error: %v", run, err)
		}
		if got := objectText(t, bucket, "p/playlist.m3u8"); got != "#EXTM3U\n0000-FILE-id01.ts\n1.m3u8\n2.m3u8\n" {
			t.Fatalf("run %d: root manifest = %q", run, got)
		}
		wants := map[string]string{
			"p/1.m3u8": "#EXTM3U\n0001-FILE-id02.ts\n",
			"p/2.m3u8": "#EXTM3U\n0002-FILE-id03.ts\n3.m3u8\n",
			"p/3.m3u8": "#EXTM3U\n0003-FILE-id04.ts\n",
		}
		for path, want := range wants {
			if got := objectText(t, bucket, path); got != want {
				t.Fatalf("run %d: %s = %q, want %q", run, path, got, want)
			}
		}
		for path, body := range map[string]string{
			"p/0000-FILE-id01.ts": "r",
			"p/0001-FILE-id02.ts": "a",
			"p/0002-FILE-id03.ts": "b",
			"p/0003-FILE-id04.ts": "g",
		} {
			if got := objectText(t, bucket, path); got != body {
				t.Fatalf("run %d: %s = %q, want %q", run, path, got, body)
			}
		}
	}
}

func chainServer(t *testing.T, length int) *testsupport.MediaServer {
	srv := testsupport.NewMediaServer(t, nil)
	for i := 0; i < length; i++ {
		lines := []string{"#EXTM3U"}
		if i+1 < length {
			lines = append(lines, fmt.Sprintf("m%d.m3u8", i+1))
		}
		srv.Set(fmt.Sprintf("/chain/m%d.m3u8", i), manifest(lines...))
	}
	return srv
}

func TestArchivePlaylistManifestLimit(t *testing.T) {
	srv := chainServer(t, archive.DefaultMaxManifests)
	bucket := testsupport.NewMemoryBucket("vids")
	if _, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/chain/m0.m3u8"), "p"); err != nil {
		t.Fatalf("chain of %d returned error: %v", archive.DefaultMaxManifests, err)
	}

	srv = chainServer(t, archive.DefaultMaxManifests+1)
	_, err := newArchiver(testsupport.NewMemoryBucket("vids"), archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/chain/m0.m3u8"), "p")
	var limit *archive.AntiAbuseLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("error = %v, want AntiAbuseLimitError", err)
	}
	if limit.Limit != archive.DefaultMaxManifests {
		t.Fatalf("Limit = %d", limit.Limit)
	}
}

func TestArchivePlaylistUpstreamFailureAborts(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/m.m3u8", manifest("#EXTM3U", "ok.ts", "missing.ts"))
	srv.Set("/ok.ts", testsupport.MediaFile{Body: "ok"})

	bucket := testsupport.NewMemoryBucket("vids")
	_, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/m.m3u8"), "p")
	var fetchErr *transfer.UpstreamFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want UpstreamFetchError", err)
	}
	if fetchErr.StatusCode != 404 || !strings.HasSuffix(fetchErr.URL, "/missing.ts") {
		t.Fatalf("fetch error = %+v", fetchErr)
	}
	if _, ok := bucket.Object("p/playlist.m3u8"); ok {
		t.Fatal("manifest uploaded despite failed transfer")
	}
}

func TestArchivePlaylistManifestFetchFailure(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	_, err := newArchiver(testsupport.NewMemoryBucket("vids"), archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/nope.m3u8"), "p")
	var fetchErr *transfer.UpstreamFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want UpstreamFetchError", err)
	}
}

func TestArchivePlaylistUploadFailureDeletesObject(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/m.m3u8", manifest("#EXTM3U", "seg.ts"))
	srv.Set("/seg.ts", testsupport.MediaFile{Body: "segment"})

	bucket := testsupport.NewMemoryBucket("vids")
	bucket.FailPut("p/0000-FILE-id01.ts", testsupport.ErrInjected)

	_, err := newArchiver(bucket, archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/m.m3u8"), "p")
	var uploadErr *transfer.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("error = %v, want UploadError", err)
	}
	if got := bucket.Paths(); len(got) != 0 {
		t.Fatalf("objects left behind: %v", got)
	}
	if got := bucket.Deleted(); len(got) != 1 || got[0] != "p/0000-FILE-id01.ts" {
		t.Fatalf("Deleted = %v", got)
	}
}

func TestArchivePlaylistMalformedTag(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/m.m3u8", manifest("#EXTM3U", "#:BROKEN=1"))

	_, err := newArchiver(testsupport.NewMemoryBucket("vids"), archive.Options{}).ArchivePlaylist(context.Background(), srv.URL("/m.m3u8"), "p")
	if !errors.Is(err, playlist.ErrMalformedTag) {
		t.Fatalf("error = %v, want ErrMalformedTag", err)
	}
}

func TestArchivePlaylistBoundedConcurrency(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	lines := []string{"#EXTM3U"}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("s%d.ts", i)
		lines = append(lines, "#EXTINF:1,", name)
		srv.Set("/"+name, testsupport.MediaFile{Body: name})
	}
	srv.Set("/m.m3u8", manifest(lines...))

	bucket := testsupport.NewMemoryBucket("vids")
	if _, err := newArchiver(bucket, archive.Options{MaxConcurrentTransfers: 2}).ArchivePlaylist(context.Background(), srv.URL("/m.m3u8"), "p"); err != nil {
		t.Fatalf("ArchivePlaylist returned error: %v", err)
	}
	if got := len(bucket.Paths()); got != 9 {
		t.Fatalf("stored %d objects, want 9", got)
	}
}

func TestArchiveDispatchesSingleFile(t *testing.T) {
	srv := testsupport.NewMediaServer(t, nil)
	srv.Set("/f/video.mp4", testsupport.MediaFile{Body: "mp4", ContentType: "video/mp4"})

	bucket := testsupport.NewMemoryBucket("vids")
	url, err := newArchiver(bucket, archive.Options{}).Archive(context.Background(), srv.URL("/f/video.mp4?dl=1"), "xyz789")
	if err != nil {
		t.Fatalf("Archive returned error: %v", err)
	}
	if url != cdnBase+"/vids/xyz789.mp4" {
		t.Fatalf("url = %q", url)
	}
	obj, ok := bucket.Object("xyz789.mp4")
	if !ok || string(obj.Data) != "mp4" || obj.ContentType != "video/mp4" {
		t.Fatalf("object = %+v, %v", obj, ok)
	}
}

func TestManifestName(t *testing.T) {
	if archive.ManifestName(0) != "playlist.m3u8" || archive.ManifestName(7) != "7.m3u8" {
		t.Fatalf("unexpected names %q %q", archive.ManifestName(0), archive.ManifestName(7))
	}
}
