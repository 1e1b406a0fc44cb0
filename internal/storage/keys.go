package storage

import (
	"path"
	"strings"
)

// SourceKey returns the object key for an uploaded document's source file.
// Directory components and unsafe characters in filename are discarded.
func SourceKey(documentID, filename string) string {
	return "sources/" + documentID + "/" + sanitizeFilename(filename)
}

func sanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "source"
	}
	return out
}
