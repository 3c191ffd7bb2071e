package post

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// InvalidRecordError reports a raw record that is not a structured mapping
// at all (null, string, number). Malformed individual fields never raise it;
// they degrade to the documented defaults instead.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record at index %d: %s", e.Index, e.Reason)
}

// classificationRule maps a raw-input condition to a media kind. Rules are
// evaluated top to bottom and the first match wins: a definitive media URL
// outranks a generic or absent type tag, so the URL checks sit inside the
// earlier rules rather than after them.
type classificationRule struct {
	kind    MediaKind
	matches func(raw RawPost) bool
}

var classificationRules = []classificationRule{
	{KindVideo, func(raw RawPost) bool {
		return raw.typeTag() == "video" ||
			raw.str("videoUrl") != "" ||
			raw.object("media").str("video") != ""
	}},
	{KindCarousel, func(raw RawPost) bool {
		tag := raw.typeTag()
		return tag == "sidecar" || tag == "carousel" ||
			len(raw.list("childPosts")) > 1 ||
			len(raw.object("media").list("images")) > 1
	}},
	{KindImage, func(raw RawPost) bool {
		return raw.typeTag() == "image" ||
			raw.str("displayUrl") != "" ||
			raw.object("media").str("image") != ""
	}},
}

// Normalizer converts raw scraped records into canonical posts.
type Normalizer struct {
	strict bool
}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NewStrictNormalizer returns a normalizer that aborts a batch on the first
// invalid record instead of skipping it.
func NewStrictNormalizer() *Normalizer {
	return &Normalizer{strict: true}
}

// Run normalizes a batch of raw records. Records that are not mappings are
// skipped and counted (or, in strict mode, abort the batch). It never
// returns a partially normalized set without reporting how many records
// were dropped.
func (n *Normalizer) Run(records []any) ([]Post, int, error) {
	posts := make([]Post, 0, len(records))
	skipped := 0

	for i, record := range records {
		raw, ok := record.(map[string]any)
		if !ok {
			if n.strict {
				return nil, 0, &InvalidRecordError{Index: i, Reason: fmt.Sprintf("expected object, got %T", record)}
			}
			slog.Debug("Skipping invalid record", "index", i, "type", fmt.Sprintf("%T", record))
			skipped++
			continue
		}
		posts = append(posts, n.Normalize(RawPost(raw)))
	}

	if skipped > 0 {
		slog.Warn("Skipped invalid records during normalization", "skipped", skipped, "total", len(records))
	}

	return posts, skipped, nil
}

// Normalize maps one raw record into a canonical Post. It is total: every
// mapping, however incomplete, produces a Post.
func (n *Normalizer) Normalize(raw RawPost) Post {
	p := Post{
		ID:              asString(raw["id"]),
		MediaKind:       n.classify(raw),
		Caption:         strings.TrimSpace(raw.str("caption")),
		URL:             raw.str("url"),
		PostedAt:        n.parseTimestamp(raw["timestamp"]),
		Likes:           raw.count("likes", "likesCount"),
		Comments:        raw.count("comments", "commentsCount"),
		HashtagCount:    len(raw.list("hashtags")),
		MentionCount:    len(raw.list("mentions")),
		TaggedUserCount: len(raw.list("tagged_users", "taggedUsers")),
		HasMusic:        hasMusic(raw),
	}

	if owner := raw.object("owner"); owner != nil {
		p.OwnerUsername = owner.str("username")
		p.OwnerID = asString(owner["id"])
		p.OwnerFullName = owner.str("full_name", "fullName")
	} else {
		p.OwnerUsername = raw.str("ownerUsername")
		p.OwnerID = asString(raw["ownerId"])
		p.OwnerFullName = raw.str("ownerFullName")
	}

	return p
}

func (n *Normalizer) classify(raw RawPost) MediaKind {
	for _, rule := range classificationRules {
		if rule.matches(raw) {
			return rule.kind
		}
	}
	return KindText
}

// parseTimestamp accepts a numeric epoch (seconds or milliseconds) or an
// ISO-like date string. Unparsable or absent input yields nil, which keeps
// the record distinguishable from one posted at epoch start.
func (n *Normalizer) parseTimestamp(v any) *time.Time {
	switch ts := v.(type) {
	case float64:
		// Zero is a valid epoch; only negative or non-finite values are
		// unparsable.
		if ts < 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
			return nil
		}
		secs := int64(ts)
		// Epochs past the year 33658 only happen when the source reports
		// milliseconds.
		if secs > 1e12 {
			t := time.UnixMilli(secs).UTC()
			return &t
		}
		t := time.Unix(secs, 0).UTC()
		return &t
	case string:
		if strings.TrimSpace(ts) == "" {
			return nil
		}
		parsed, err := dateparse.ParseAny(ts)
		if err != nil {
			slog.Debug("Unparsable timestamp", "value", ts, "error", err)
			return nil
		}
		t := parsed.UTC()
		return &t
	default:
		return nil
	}
}

// hasMusic is true iff music metadata is present and carries a non-empty
// title. The persisted layout stores the title directly; the scraper-native
// layout nests it under musicInfo.
func hasMusic(raw RawPost) bool {
	if raw.str("music") != "" {
		return true
	}
	if music := raw.object("music"); music != nil {
		return music.str("song_name", "title", "name") != ""
	}
	if info := raw.object("musicInfo"); info != nil {
		return info.str("song_name", "title", "name") != ""
	}
	return false
}
