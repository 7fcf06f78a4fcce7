package playlist

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedTag reports a directive line that cannot be decoded.
var ErrMalformedTag = errors.New("malformed tag")

// Attribute is a single key or key=value pair of a directive tag. Value is
// stored exactly as it appeared, including any surrounding double quotes.
type Attribute struct {
	Key      string
	Value    string
	HasValue bool
}

// Quoted reports whether the raw value is wrapped in double quotes.
func (a Attribute) Quoted() bool {
	return a.HasValue && len(a.Value) >= 2 && strings.HasPrefix(a.Value, `"`) && strings.HasSuffix(a.Value, `"`)
}

// Unquoted returns the value with one pair of surrounding quotes removed.
func (a Attribute) Unquoted() string {
	if !a.Quoted() {
		return a.Value
	}
	return a.Value[1 : len(a.Value)-1]
}

// Tag is a decoded directive line such as #EXT-X-KEY:METHOD=AES-128,URI="k".
type Tag struct {
	Name       string
	Attributes []Attribute
	// HasBlob is set when the line contained a ':' separator, even if the
	// attribute list after it was empty.
	HasBlob bool
}

// ParseTag decodes a directive line. The line must begin with '#'.
func ParseTag(line string) (Tag, error) {
	if !strings.HasPrefix(line, "#") {
		return Tag{}, fmt.Errorf("%w: missing '#': %q", ErrMalformedTag, line)
	}
	body := line[1:]
	name, blob, hasBlob := strings.Cut(body, ":")
	if name == "" {
		return Tag{}, fmt.Errorf("%w: empty name: %q", ErrMalformedTag, line)
	}
	tag := Tag{Name: name, HasBlob: hasBlob}
	if !hasBlob || blob == "" {
		return tag, nil
	}
	for _, token := range splitAttributes(blob) {
		key, value, hasValue := strings.Cut(token, "=")
		if key == "" {
			return Tag{}, fmt.Errorf("%w: empty attribute key in %q", ErrMalformedTag, line)
		}
		tag.Attributes = append(tag.Attributes, Attribute{Key: key, Value: value, HasValue: hasValue})
	}
	return tag, nil
}

// splitAttributes splits on commas that are not inside a double-quoted run.
func splitAttributes(blob string) []string {
	var (
		tokens  []string
		inQuote bool
		start   int
	)
	for i := 0; i < len(blob); i++ {
		switch blob[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				tokens = append(tokens, blob[start:i])
				start = i + 1
			}
		}
	}
	return append(tokens, blob[start:])
}

// String re-encodes the tag. For any tag returned by ParseTag and left
// unmodified the output equals the input line.
func (t Tag) String() string {
	var b strings.Builder
	b.WriteByte('#')
	b.WriteString(t.Name)
	if !t.HasBlob && len(t.Attributes) == 0 {
		return b.String()
	}
	b.WriteByte(':')
	for i, attr := range t.Attributes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(attr.Key)
		if attr.HasValue {
			b.WriteByte('=')
			b.WriteString(attr.Value)
		}
	}
	return b.String()
}

// SetQuoted replaces the value of the attribute at index i with s wrapped in
// double quotes.
func (t *Tag) SetQuoted(i int, s string) {
	t.Attributes[i].Value = `"` + s + `"`
	t.Attributes[i].HasValue = true
}
