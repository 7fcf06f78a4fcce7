package playlist

import (
	"net/url"
	"path"
	"strings"
)

// LineKind classifies a single manifest line.
type LineKind int

const (
	// LineBlank is empty or whitespace-only.
	LineBlank LineKind = iota
	// LinePassthrough is #EXTM3U or an #EXTINF line, emitted unchanged.
	LinePassthrough
	// LineDirective is any other line starting with '#'.
	LineDirective
	// LineReference is a bare URI to a segment or child playlist.
	LineReference
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LinePassthrough:
		return "passthrough"
	case LineDirective:
		return "directive"
	case LineReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Classify returns the kind of line.
func Classify(line string) LineKind {
	switch {
	case strings.TrimSpace(line) == "":
		return LineBlank
	case line == "#EXTM3U", strings.HasPrefix(line, "#EXTINF"):
		return LinePassthrough
	case strings.HasPrefix(line, "#"):
		return LineDirective
	default:
		return LineReference
	}
}

// Line is one manifest line without its terminator. CR records a trailing
// carriage return (CRLF line ending) that was stripped from Text.
type Line struct {
	Text string
	CR   bool
}

// SplitLines splits manifest text on "\n" without dropping empty lines, so
// that JoinLines(SplitLines(s)) == s.
func SplitLines(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, len(raw))
	for i, r := range raw {
		t, cr := strings.CutSuffix(r, "\r")
		lines[i] = Line{Text: t, CR: cr}
	}
	return lines
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []Line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
		if l.CR {
			b.WriteByte('\r')
		}
	}
	return b.String()
}

// IsURIKey reports whether an attribute key names a URI (case-insensitive).
func IsURIKey(key string) bool {
	return strings.EqualFold(key, "URI")
}

// Ext returns the file extension of the path portion of ref, ignoring any
// query string or fragment.
func Ext(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.IndexAny(ref, "?#"); i >= 0 {
		p = ref[:i]
	}
	return path.Ext(p)
}

// IsPlaylist reports whether ref points at another M3U8 manifest.
func IsPlaylist(ref string) bool {
	return Ext(ref) == ".m3u8"
}
