package internal

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9]+$`)
	siteURLRe   = regexp.MustCompile(`^https?://[^\s/]+(/\S*)?$`)
)

// relativePath rejects paths that are absolute or leave the project.
func relativePath(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if filepath.IsAbs(s) {
		return errors.New("must be relative to the project root")
	}
	clean := filepath.ToSlash(filepath.Clean(s))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must name a directory inside the project")
	}
	return nil
}
