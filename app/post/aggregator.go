package post

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// TimestampUnavailable marks table rows whose post has no parseable
	// timestamp. It is never the empty string so the unavailable case stays
	// visually distinct in tabular display.
	TimestampUnavailable = "n/a"

	tableTimeFormat = "2006-01-02 15:04:05"
	dateFormat      = "2006-01-02"
)

// AggregateView bundles the derived series computed from a post sequence
// for presentation. It is recomputed on every refresh; nothing in it is
// cached or mutated in place.
type AggregateView struct {
	TypeDistribution map[MediaKind]int `json:"type_distribution"`
	Timeline         []TimelineEntry   `json:"timeline"`
	TableColumns     []TableColumn     `json:"table_columns"`
	TableRows        []TableRow        `json:"table_rows"`
	ScatterPoints    []ScatterPoint    `json:"scatter_points"`
	Engagement       []EngagementPoint `json:"engagement"`
}

// TimelineEntry is one calendar date's summed engagement. Date is formatted
// 2006-01-02, so lexicographic order matches chronological order.
type TimelineEntry struct {
	Date     string `json:"date"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

type TableColumn struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TableRow struct {
	ID           string    `json:"id"`
	MediaKind    MediaKind `json:"media_kind"`
	Timestamp    string    `json:"timestamp"`
	Likes        int       `json:"likes"`
	Comments     int       `json:"comments"`
	HashtagCount int       `json:"hashtag_count"`
	MentionCount int       `json:"mention_count"`
}

type ScatterPoint struct {
	HashtagCount int       `json:"hashtag_count"`
	MentionCount int       `json:"mention_count"`
	Likes        int       `json:"likes"`
	MediaKind    MediaKind `json:"media_kind"`
}

type EngagementPoint struct {
	ID       string `json:"id"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
}

var tableColumnIDs = []string{"id", "media_kind", "timestamp", "likes", "comments", "hashtag_count", "mention_count"}

// Aggregator derives chart-ready series from canonical posts.
type Aggregator struct {
	titleCaser cases.Caser
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		titleCaser: cases.Title(language.English),
	}
}

// Run computes all derived series over the same input. The reductions are
// independent; an empty input yields an empty view, never an error.
func (a *Aggregator) Run(posts []Post) AggregateView {
	return AggregateView{
		TypeDistribution: a.typeDistribution(posts),
		Timeline:         a.timeline(posts),
		TableColumns:     a.tableColumns(),
		TableRows:        a.tableRows(posts),
		ScatterPoints:    a.scatterPoints(posts),
		Engagement:       a.engagement(posts),
	}
}

// typeDistribution counts posts per media kind. Kinds with zero posts are
// omitted, not listed with count 0.
func (a *Aggregator) typeDistribution(posts []Post) map[MediaKind]int {
	distribution := make(map[MediaKind]int)
	for _, p := range posts {
		distribution[p.MediaKind]++
	}
	return distribution
}

// timeline groups posts with a present timestamp by calendar date, sums
// likes and comments per date, and orders the result ascending. Posts
// without a timestamp are excluded here but still appear in table rows.
func (a *Aggregator) timeline(posts []Post) []TimelineEntry {
	byDate := make(map[string]*TimelineEntry)
	for _, p := range posts {
		if p.PostedAt == nil {
			continue
		}
		date := p.PostedAt.UTC().Format(dateFormat)
		entry, ok := byDate[date]
		if !ok {
			entry = &TimelineEntry{Date: date}
			byDate[date] = entry
		}
		entry.Likes += p.Likes
		entry.Comments += p.Comments
	}

	timeline := make([]TimelineEntry, 0, len(byDate))
	for _, entry := range byDate {
		timeline = append(timeline, *entry)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Date < timeline[j].Date
	})

	return timeline
}

func (a *Aggregator) tableColumns() []TableColumn {
	columns := make([]TableColumn, 0, len(tableColumnIDs))
	for _, id := range tableColumnIDs {
		columns = append(columns, TableColumn{
			ID:   id,
			Name: a.titleCaser.String(strings.ReplaceAll(id, "_", " ")),
		})
	}
	return columns
}

// tableRows projects posts for tabular display, preserving input order.
func (a *Aggregator) tableRows(posts []Post) []TableRow {
	rows := make([]TableRow, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, TableRow{
			ID:           p.ID,
			MediaKind:    p.MediaKind,
			Timestamp:    formatTableTimestamp(p.PostedAt),
			Likes:        p.Likes,
			Comments:     p.Comments,
			HashtagCount: p.HashtagCount,
			MentionCount: p.MentionCount,
		})
	}
	return rows
}

// scatterPoints projects every post for the hashtag/mention/likes
// correlation view. No filtering.
func (a *Aggregator) scatterPoints(posts []Post) []ScatterPoint {
	points := make([]ScatterPoint, 0, len(posts))
	for _, p := range posts {
		points = append(points, ScatterPoint{
			HashtagCount: p.HashtagCount,
			MentionCount: p.MentionCount,
			Likes:        p.Likes,
			MediaKind:    p.MediaKind,
		})
	}
	return points
}

func (a *Aggregator) engagement(posts []Post) []EngagementPoint {
	points := make([]EngagementPoint, 0, len(posts))
	for _, p := range posts {
		points = append(points, EngagementPoint{
			ID:       p.ID,
			Likes:    p.Likes,
			Comments: p.Comments,
		})
	}
	return points
}

func formatTableTimestamp(t *time.Time) string {
	if t == nil {
		return TimestampUnavailable
	}
	return t.UTC().Format(tableTimeFormat)
}
