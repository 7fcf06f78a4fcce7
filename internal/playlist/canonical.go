package playlist

import "strings"

// Canonicalize resolves ref against the URL of the manifest that contains
// it. Absolute http(s) references are returned unchanged. Anything else is
// joined onto the directory of base. Dot segments are not collapsed.
func Canonicalize(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	dir := base
	if i := strings.LastIndex(base, "/"); i >= 0 {
		dir = base[:i]
	}
	return dir + "/" + ref
}
