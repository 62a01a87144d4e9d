package domain

import (
	"regexp"
	"strings"

	"computor-backend/pkg/errors"
)

// pathLabelRegex matches a single ltree label
var pathLabelRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Path is a labeled tree path of the form "a.b.c", mirroring the ltree
// column type used for course-content structure and example identifiers.
type Path string

// NewPath validates and returns a Path.
func NewPath(s string) (Path, error) {
	if s == "" {
		return "", errors.NewValidation("path must not be empty")
	}
	for _, label := range strings.Split(s, ".") {
		if !pathLabelRegex.MatchString(label) {
			return "", errors.NewValidation("path label must match [A-Za-z0-9_]+: " + label)
		}
	}
	return Path(s), nil
}

// String returns the dotted representation.
func (p Path) String() string { return string(p) }

// Segments returns the individual labels.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// Level returns the number of labels, matching nlevel(path).
func (p Path) Level() int {
	return len(p.Segments())
}

// Prefix returns the first n labels, matching subpath(path, 0, n).
// If n exceeds the level the whole path is returned.
func (p Path) Prefix(n int) Path {
	segs := p.Segments()
	if n >= len(segs) {
		return p
	}
	return Path(strings.Join(segs[:n], "."))
}

// Parent returns the path with the last label removed, or "" at the root.
func (p Path) Parent() Path {
	segs := p.Segments()
	if len(segs) <= 1 {
		return ""
	}
	return Path(strings.Join(segs[:len(segs)-1], "."))
}

// IsDescendantOf reports whether p is equal to or below prefix,
// matching the ltree <@ operator.
func (p Path) IsDescendantOf(prefix Path) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(string(p), string(prefix)+".")
}

// Equals compares two paths label-wise.
func (p Path) Equals(other Path) bool { return p == other }
