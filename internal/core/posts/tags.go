package posts

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	maxTags            = 20
	maxTagGraphemes    = 32
	recentTagPostLimit = 5
	recentTagLimit     = 5
)

// ParseTags splits a comma-separated tag field.
// Surrounding whitespace is trimmed and empty segments are dropped;
// order and duplicates are preserved.
func ParseTags(raw string) ([]string, error) {
	tags := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if uniseg.GraphemeClusterCount(tag) > maxTagGraphemes {
			return nil, NewValidationError("tags",
				fmt.Sprintf("tag %q too long (max %d characters)", tag, maxTagGraphemes))
		}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, NewValidationError("tags", fmt.Sprintf("too many tags (max %d)", maxTags))
	}
	return tags, nil
}

// sampleTags flattens per-post tag lists in post order and keeps the first limit entries
func sampleTags(lists [][]string, limit int) []string {
	out := make([]string, 0, limit)
	for _, tags := range lists {
		for _, tag := range tags {
			if len(out) == limit {
				return out
			}
			out = append(out, tag)
		}
	}
	return out
}
