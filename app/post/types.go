package post

import (
	"strconv"
	"strings"
	"time"
)

// MediaKind classifies a post's primary content type.
type MediaKind string

const (
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindCarousel MediaKind = "carousel"
	KindText     MediaKind = "text"
)

// Post is the canonical, fully-defaulted post record produced by
// normalization. PostedAt is nil when the raw timestamp was absent or
// unparsable, which keeps such posts out of time-based aggregations.
type Post struct {
	ID              string     `json:"id"`
	MediaKind       MediaKind  `json:"media_kind"`
	Caption         string     `json:"caption"`
	URL             string     `json:"url"`
	PostedAt        *time.Time `json:"posted_at"`
	Likes           int        `json:"likes"`
	Comments        int        `json:"comments"`
	HashtagCount    int        `json:"hashtag_count"`
	MentionCount    int        `json:"mention_count"`
	TaggedUserCount int        `json:"tagged_user_count"`
	HasMusic        bool       `json:"has_music"`
	OwnerUsername   string     `json:"owner_username"`
	OwnerID         string     `json:"owner_id"`
	OwnerFullName   string     `json:"owner_full_name"`
}

// RawPost is an unvalidated scraped post record: a decoded JSON object whose
// keys may be absent, null, or of inconsistent type across sources. The
// accessors below resolve each field to a defaulted value; they never fail.
type RawPost map[string]any

// str returns the first key whose value is a non-empty string.
func (r RawPost) str(keys ...string) string {
	for _, key := range keys {
		if s, ok := r[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// count returns the first key holding a numeric value, clamped to >= 0.
func (r RawPost) count(keys ...string) int {
	for _, key := range keys {
		if n, ok := toInt(r[key]); ok {
			if n < 0 {
				return 0
			}
			return n
		}
	}
	return 0
}

// list returns the first key holding a JSON array.
func (r RawPost) list(keys ...string) []any {
	for _, key := range keys {
		if l, ok := r[key].([]any); ok {
			return l
		}
	}
	return nil
}

// object returns the first key holding a JSON object.
func (r RawPost) object(keys ...string) RawPost {
	for _, key := range keys {
		if m, ok := r[key].(map[string]any); ok {
			return RawPost(m)
		}
	}
	return nil
}

// typeTag returns the raw post-type indicator, lowercased and trimmed.
func (r RawPost) typeTag() string {
	return strings.ToLower(strings.TrimSpace(r.str("type")))
}

// asString renders scalar JSON values (ids arrive as strings from some
// sources and as numbers from others).
func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
