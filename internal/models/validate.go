package models

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var listingIDRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Validate checks the resolved listing. A missing custom template is not
// reported here; dispatch names it as a configuration error.
func (l *Listing) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.ID, validation.Required, validation.Match(listingIDRe)),
		validation.Field(&l.Contents, validation.Required),
		validation.Field(&l.MaxItems, validation.Min(0)),
		validation.Field(&l.PageSize, validation.Min(0)),
		validation.Field(&l.Feed),
	)
}

// Validate checks feed options.
func (f *FeedOptions) Validate() error {
	return validation.ValidateStruct(f,
		validation.Field(&f.Type, validation.In(FeedFull, FeedPartial, FeedMetadata)),
		validation.Field(&f.Items, validation.Min(0)),
	)
}
