package automation

import (
	"context"
	"log/slog"
)

// Capturer renders a page in a browser and stores a screenshot of it.
// Implementations classify their failures with Transient or Fatal.
type Capturer interface {
	// Capture screenshots the output page at href into the project-relative
	// image path dest.
	Capture(ctx context.Context, href, dest string) error
}

// Retrying wraps a Capturer with Retry.
type Retrying struct {
	Capturer Capturer
	Logger   *slog.Logger
}

// Capture implements Capturer.
func (r Retrying) Capture(ctx context.Context, href, dest string) error {
	return Retry(ctx, r.Logger, func(ctx context.Context) error {
		return r.Capturer.Capture(ctx, href, dest)
	})
}
