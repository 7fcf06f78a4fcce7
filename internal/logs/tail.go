package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/muxinc/video-archivist/internal/logging"
)

const pollInterval = 250 * time.Millisecond

// ErrNoLogs is returned when log_dir holds no daemon logs yet.
var ErrNoLogs = errors.New("no daemon logs found")

// Latest returns the most recently modified daemon log in dir.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.DaemonLogPattern))
	if err != nil {
		return "", err
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		found = append(found, candidate{path: path, mod: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogs, dir)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].path > found[j].path
		}
		return found[i].mod.After(found[j].mod)
	})
	return found[0].path, nil
}

// Filter selects which lines are returned. A nil Filter keeps every line.
type Filter func(line string) bool

// ForItem keeps JSON records whose item_id equals id.
func ForItem(id int64) Filter {
	return func(line string) bool {
		var record struct {
			ItemID *int64 `json:"item_id"`
		}
		if err := json.Unmarshal([]byte(line), &record); err != nil || record.ItemID == nil {
			return false
		}
		return *record.ItemID == id
	}
}

// Last returns up to limit matching lines from the end of path together
// with the offset just past the data read, for a later Follow.
func Last(path string, limit int, keep Filter) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, 0, func(line string) {
		if keep != nil && !keep(line) {
			return
		}
		ring[next] = line
		next = (next + 1) % limit
		count++
	})
	if err != nil {
		return nil, 0, err
	}

	if count > limit {
		count = limit
	}
	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// Follow streams lines appended after offset to emit until ctx ends.
// Partial trailing lines are held back until their newline arrives.
func Follow(ctx context.Context, path string, offset int64, keep Filter, emit func(string)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		if info, statErr := file.Stat(); statErr == nil && info.Size() < offset {
			// Truncated underneath us; start over.
			offset = 0
		}
		offset, err = scanLines(file, offset, func(line string) {
			if keep == nil || keep(line) {
				emit(line)
			}
		})
		file.Close()
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// scanLines calls fn for every complete line at or after offset and returns
// the offset just past the last complete line.
func scanLines(file *os.File, offset int64, fn func(string)) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			// Oversized record: skip through to its newline.
			skipped := int64(len(line))
			for errors.Is(err, bufio.ErrBufferFull) {
				line, err = reader.ReadSlice('\n')
				skipped += int64(len(line))
			}
			if err == nil {
				offset += skipped
				continue
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return offset, nil
			}
			return offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(line))
		text := string(line[:len(line)-1])
		if n := len(text); n > 0 && text[n-1] == '\r' {
			text = text[:n-1]
		}
		fn(text)
	}
}
