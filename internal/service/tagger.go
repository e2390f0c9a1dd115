package service

import "context"

// Tagger classifies an event's text fields into topical tags. The classifier
// itself lives outside this pipeline; a nil Tagger disables tagging.
type Tagger interface {
	AutoTag(ctx context.Context, name, description, committee string) ([]string, error)
}
