package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConfig           = errors.New("configuration error")
	ErrCacheUnavailable = errors.New("listing cache unavailable")
)

// ConfigError reports a listing whose configuration cannot be honoured.
type ConfigError struct {
	ListingID string
	Path      string
	Reason    string
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "template not found"
	}
	return fmt.Sprintf("listing %q: %s: %s", e.ListingID, reason, e.Path)
}

// Is makes errors.Is(err, ErrConfig) hold for every ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}
