// Package keys derives deterministic storage keys for uploaded media.
package keys

import (
	"fmt"
	"strings"
	"time"
)

// Builder produces storage keys of the shape
//
//	prefix/[video/]owner/operator/YYYY-MM-DD/HH-MM-SS-uploadEpochMillis-name
//
// Video assets get the extra "video/" segment so storage-side transformation
// rules can differ by media type. The key is derived from timestamps and the
// original name, never from content, so byte-identical uploads at different
// times get distinct keys.
type Builder struct {
	Prefix string

	// Now is the upload-time source; defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a Builder with the given key prefix.
func NewBuilder(prefix string) *Builder {
	return &Builder{Prefix: strings.Trim(prefix, "/"), Now: time.Now}
}

// Key derives the storage key for one upload attempt.
func (b *Builder) Key(owner, operator, name, mimeType string, capturedAt time.Time) string {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	uploadedAt := now()

	parts := make([]string, 0, 6)
	if b.Prefix != "" {
		parts = append(parts, b.Prefix)
	}
	if strings.HasPrefix(mimeType, "video/") {
		parts = append(parts, "video")
	}
	parts = append(parts,
		sanitizeSegment(owner),
		sanitizeSegment(operator),
		capturedAt.Format("2006-01-02"),
		fmt.Sprintf("%s-%d-%s",
			capturedAt.Format("15-04-05"),
			uploadedAt.UnixMilli(),
			sanitizeName(name)),
	)
	return strings.Join(parts, "/")
}

func sanitizeName(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(name)
}

func sanitizeSegment(segment string) string {
	return strings.ToLower(sanitizeName(segment))
}
