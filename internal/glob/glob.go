// Package glob matches project-relative paths against listing content patterns.
//
// Patterns use doublestar syntax with forward slashes. A leading "!" marks an
// exclude pattern; a path matches a set when it matches at least one include
// and no exclude.
package glob

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a changed project-relative path concerns a
// pattern set.
type Matcher interface {
	Match(patterns []string, changed string) bool
}

// Doublestar is the default Matcher. A changed path concerns the set when it
// matches as a file or may be a directory that held matching files.
type Doublestar struct{}

var _ Matcher = Doublestar{}

// Match implements Matcher.
func (Doublestar) Match(patterns []string, changed string) bool {
	s := Compile(patterns)
	return s.Match(changed) || s.MatchDir(changed)
}

// Set is a pre-split include/exclude pattern list.
type Set struct {
	include []string
	exclude []string
}

// Compile splits patterns into includes and excludes. Invalid patterns are
// kept; doublestar reports them as non-matching.
func Compile(patterns []string) Set {
	var s Set
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "!") {
			s.exclude = append(s.exclude, strings.TrimPrefix(p, "!"))
			continue
		}
		s.include = append(s.include, p)
	}
	return s
}

// Match reports whether file is included and not excluded.
func (s Set) Match(file string) bool {
	file = Normalize(file)
	if !anyMatch(s.include, file) {
		return false
	}
	return !anyMatch(s.exclude, file)
}

// MatchDir reports whether dir may contain files the set includes, so a
// removed or renamed directory can stand for its former contents. A path an
// exclude pattern matches is never treated as a directory.
func (s Set) MatchDir(dir string) bool {
	dir = Normalize(dir)
	if anyMatch(s.exclude, dir) {
		return false
	}
	for _, p := range s.include {
		if dirMayMatch(p, dir) {
			return true
		}
	}
	return false
}

// Filter returns the files matched by the set, preserving order.
func (s Set) Filter(files []string) []string {
	var out []string
	for _, f := range files {
		if s.Match(f) {
			out = append(out, f)
		}
	}
	return out
}

func anyMatch(patterns []string, file string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, file); err == nil && ok {
			return true
		}
		// A bare directory pattern covers everything below it.
		if !hasMeta(p) && strings.HasPrefix(file, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func dirMayMatch(pattern, dir string) bool {
	if dir == "." {
		return true
	}
	base, rest := doublestar.SplitPattern(pattern)
	if !hasMeta(pattern) {
		base, rest = pattern, ""
	}
	if base != "." && (base == dir || strings.HasPrefix(base, dir+"/")) {
		return true
	}

	var rel string
	switch {
	case base == ".":
		rel = dir
	case strings.HasPrefix(dir, base+"/"):
		rel = strings.TrimPrefix(dir, base+"/")
	default:
		return false
	}
	if rest == "" {
		// Below a bare directory pattern.
		return true
	}

	relSegs := strings.Split(rel, "/")
	patSegs := strings.Split(rest, "/")
	for i, seg := range relSegs {
		if i >= len(patSegs) {
			return false
		}
		if patSegs[i] == "**" {
			return true
		}
		if ok, err := doublestar.Match(patSegs[i], seg); err != nil || !ok {
			return false
		}
	}
	// A file inside dir needs at least one more segment.
	return len(patSegs) > len(relSegs)
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Normalize converts a relative path to the slash form patterns are written in.
func Normalize(file string) string {
	file = filepath.ToSlash(file)
	file = strings.TrimPrefix(file, "./")
	return path.Clean(file)
}

// Rebase makes a pattern written relative to dir relative to the project root.
// Patterns starting with "/" are already project-root relative.
func Rebase(dir, pattern string) string {
	pattern = strings.TrimSpace(pattern)
	neg := strings.HasPrefix(pattern, "!")
	pattern = strings.TrimPrefix(pattern, "!")

	var out string
	switch {
	case strings.HasPrefix(pattern, "/"):
		out = path.Clean(strings.TrimPrefix(pattern, "/"))
	default:
		dir = Normalize(dir)
		if dir == "." || dir == "" {
			out = path.Clean(pattern)
		} else {
			out = path.Join(dir, pattern)
		}
	}
	if neg {
		return "!" + out
	}
	return out
}
