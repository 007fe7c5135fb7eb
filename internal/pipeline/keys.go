package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Keys allocates placeholder keys for one document. Every key carries a
// random document token so it cannot collide with author-written ids.
type Keys struct {
	token string
	n     int
}

// NewKeys returns an allocator with a fresh document token.
func NewKeys() *Keys {
	return &Keys{token: strings.ReplaceAll(uuid.NewString(), "-", "")[:12]}
}

// Next returns a new key built from label.
func (k *Keys) Next(label string) string {
	k.n++
	label = strings.Trim(unsafeKeyChars.ReplaceAllString(label, "-"), "-")
	if label == "" {
		label = "handler"
	}
	return fmt.Sprintf("pl-%s-%s-%d", k.token, label, k.n)
}
