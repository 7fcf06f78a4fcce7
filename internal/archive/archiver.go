package archive

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muxinc/video-archivist/internal/logging"
	"github.com/muxinc/video-archivist/internal/playlist"
	"github.com/muxinc/video-archivist/internal/storage"
	"github.com/muxinc/video-archivist/internal/transfer"
)

// RootManifestName is the object name of the sequence-0 manifest.
const RootManifestName = "playlist.m3u8"

// Options tune an Archiver.
type Options struct {
	// MaxConcurrentTransfers bounds leaf transfers per manifest. Zero means
	// unbounded.
	MaxConcurrentTransfers int
	// MaxManifests bounds distinct manifests per run. Zero uses
	// DefaultMaxManifests.
	MaxManifests int
	Logger       *slog.Logger
	// NewID generates the unique part of leaf object names. Defaults to
	// random UUIDs.
	NewID func() string
}

// Archiver copies playlists and files into a bucket.
type Archiver struct {
	client       *transfer.Client
	uploader     *transfer.Uploader
	logger       *slog.Logger
	maxTransfers int
	maxManifests int
	newID        func() string
}

// Result describes one archived manifest.
type Result struct {
	Index int
	Path  string
	URL   string
}

// New returns an Archiver that fetches with client and writes to bucket,
// building public URLs from storageURLBase.
func New(client *transfer.Client, bucket storage.Bucket, storageURLBase string, opts Options) *Archiver {
	if client == nil {
		client = transfer.NewClient(0, "")
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Archiver{
		client:       client,
		uploader:     transfer.NewUploader(bucket, storageURLBase),
		logger:       logging.NewComponentLogger(opts.Logger, "archiver"),
		maxTransfers: opts.MaxConcurrentTransfers,
		maxManifests: opts.MaxManifests,
		newID:        newID,
	}
}

// ManifestName returns the object name for manifest sequence index.
func ManifestName(index int) string {
	if index == 0 {
		return RootManifestName
	}
	return fmt.Sprintf("%d.m3u8", index)
}

// Archive archives sourceURL under prefix, choosing the playlist path for
// .m3u8 URLs and the single-file path otherwise.
func (a *Archiver) Archive(ctx context.Context, sourceURL, prefix string) (string, error) {
	if playlist.IsPlaylist(sourceURL) {
		return a.ArchivePlaylist(ctx, sourceURL, prefix)
	}
	return a.ArchiveFile(ctx, sourceURL, prefix)
}

// ArchivePlaylist archives the manifest tree rooted at manifestURL under
// prefix and returns the public URL of the rewritten root manifest.
func (a *Archiver) ArchivePlaylist(ctx context.Context, manifestURL, prefix string) (string, error) {
	start := time.Now()
	state := NewRunState(a.maxManifests)
	res, err := a.ArchiveManifest(ctx, manifestURL, prefix, state)
	if err != nil {
		return "", err
	}
	a.logger.Info("playlist archived",
		logging.String(logging.FieldEventType, "playlist_archived"),
		logging.String("source_url", manifestURL),
		logging.String("archive_url", res.URL),
		logging.Int("manifests", state.Manifests()),
		logging.Int("files", state.Files()),
		logging.Duration("duration", time.Since(start)),
	)
	return res.URL, nil
}

// ArchiveFile copies a single file to {prefix}{ext}, where ext comes from
// the URL path.
func (a *Archiver) ArchiveFile(ctx context.Context, sourceURL, prefix string) (string, error) {
	path := strings.Trim(prefix, "/") + playlist.Ext(sourceURL)
	url, err := a.uploader.Transfer(ctx, a.client, sourceURL, path)
	if err != nil {
		return "", err
	}
	a.logger.Info("file archived",
		logging.String(logging.FieldEventType, "file_archived"),
		logging.String("source_url", sourceURL),
		logging.String("archive_url", url),
	)
	return url, nil
}

// ArchiveManifest archives one manifest and, recursively, everything it
// references. state must be fresh for each top-level archive.
func (a *Archiver) ArchiveManifest(ctx context.Context, manifestURL, prefix string, state *RunState) (Result, error) {
	index := state.Next()
	name := ManifestName(index)
	if err := state.Visit(manifestURL); err != nil {
		return Result{}, err
	}

	logger := a.logger.With(logging.Int("manifest_index", index), logging.String("manifest_url", manifestURL))
	logger.Debug("archiving manifest")

	text, contentType, err := a.client.FetchText(ctx, manifestURL)
	if err != nil {
		return Result{}, err
	}

	group := newTransferGroup(ctx, a.maxTransfers)
	run := &manifestRun{
		archiver: a,
		base:     manifestURL,
		prefix:   prefix,
		index:    index,
		state:    state,
		group:    group,
	}
	lines := playlist.SplitLines(text)
	for i, line := range lines {
		rewritten, err := run.rewriteLine(group.ctx, line.Text)
		if err != nil {
			if first := group.Abort(); first != nil {
				return Result{}, first
			}
			return Result{}, err
		}
		lines[i].Text = rewritten
	}
	if err := group.Wait(); err != nil {
		return Result{}, err
	}

	path := storage.JoinPath(prefix, name)
	url, err := a.uploader.UploadText(ctx, path, playlist.JoinLines(lines), contentType)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("manifest uploaded", logging.String("archive_url", url))
	return Result{Index: index, Path: path, URL: url}, nil
}

// manifestRun carries the per-manifest context of the line loop.
type manifestRun struct {
	archiver *Archiver
	base     string
	prefix   string
	index    int
	state    *RunState
	group    *transferGroup
}

func (r *manifestRun) rewriteLine(ctx context.Context, line string) (string, error) {
	switch playlist.Classify(line) {
	case playlist.LineBlank, playlist.LinePassthrough:
		return line, nil
	case playlist.LineDirective:
		return r.rewriteTag(ctx, line)
	default:
		ref := strings.TrimSpace(line)
		return r.resolve(ctx, playlist.Canonicalize(r.base, ref), fmt.Sprintf("%04d-FILE-", r.index))
	}
}

func (r *manifestRun) rewriteTag(ctx context.Context, line string) (string, error) {
	tag, err := playlist.ParseTag(line)
	if err != nil {
		return "", err
	}
	changed := false
	for i, attr := range tag.Attributes {
		if !playlist.IsURIKey(attr.Key) || !attr.Quoted() {
			continue
		}
		target := playlist.Canonicalize(r.base, attr.Unquoted())
		replacement, err := r.resolve(ctx, target, fmt.Sprintf("%04d-EXT-%s-", r.index, attr.Key))
		if err != nil {
			return "", err
		}
		tag.SetQuoted(i, replacement)
		changed = true
	}
	if !changed {
		return line, nil
	}
	return tag.String(), nil
}

// resolve archives target and returns the name that replaces it in the
// rewritten manifest. Child manifests are archived before returning; other
// files are queued on the transfer group.
func (r *manifestRun) resolve(ctx context.Context, target, namePrefix string) (string, error) {
	a := r.archiver
	if playlist.IsPlaylist(target) {
		child, err := a.ArchiveManifest(ctx, target, r.prefix, r.state)
		if err != nil {
			return "", err
		}
		return ManifestName(child.Index), nil
	}

	name := namePrefix + a.newID() + playlist.Ext(target)
	path := storage.JoinPath(r.prefix, name)
	r.state.addFile()
	r.group.Go(func(ctx context.Context) error {
		_, err := a.uploader.Transfer(ctx, a.client, target, path)
		return err
	})
	return name, nil
}
