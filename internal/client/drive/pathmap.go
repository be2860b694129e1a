package drive

import (
	"path"
	"strings"
)

// Mapper translates between user-facing folder paths and the folder path
// relative to the remote upload root. Destination folders are shown to the
// user under a friendly alias ("Blink Drive/Invoices"), while the remote
// drive only knows the path below the configured root folder.
type Mapper struct {
	rootAlias string
}

// NewMapper returns a Mapper for the given display alias.
func NewMapper(rootAlias string) *Mapper {
	return &Mapper{rootAlias: strings.Trim(rootAlias, "/\\")}
}

// ToRemote converts a user-facing folder path into the drive-relative path.
// The alias prefix is stripped when present, Windows separators are
// normalized, and the result never has leading or trailing slashes. An empty
// result means the upload root itself.
func (m *Mapper) ToRemote(display string) string {
	p := strings.ReplaceAll(display, "\\", "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}

	if m.rootAlias != "" {
		if strings.EqualFold(p, m.rootAlias) {
			return ""
		}
		prefix := m.rootAlias + "/"
		if len(p) >= len(prefix) && strings.EqualFold(p[:len(prefix)], prefix) {
			p = p[len(prefix):]
		}
	}

	return path.Clean("/" + p)[1:]
}

// ToDisplay converts a drive-relative path back to the user-facing form,
// prefixed with the alias.
func (m *Mapper) ToDisplay(remote string) string {
	remote = strings.Trim(strings.ReplaceAll(remote, "\\", "/"), "/")
	if m.rootAlias == "" {
		return remote
	}
	if remote == "" {
		return m.rootAlias
	}
	return m.rootAlias + "/" + remote
}

// Segments splits a drive-relative path into folder names, skipping empty
// parts. An empty path yields no segments.
func Segments(remote string) []string {
	var out []string
	for _, s := range strings.Split(remote, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
