package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/postlens/postlens/app/post"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	return db
}

func TestPostRepositoryGetPostsOrdering(t *testing.T) {
	db := newTestDB(t)
	sourceRepo := NewSourceRepository(db)
	postRepo := NewPostRepository(db)

	err := sourceRepo.UpsertSource("natgeo", "https://www.instagram.com/natgeo/")
	if err != nil {
		t.Fatal(err)
	}

	older := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	// Insert the undated post first so a naive insertion-time sort would
	// serve it ahead of the dated ones.
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "undated", MediaKind: post.KindText}, "{}")
	if err != nil {
		t.Fatal(err)
	}
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "older", MediaKind: post.KindImage, PostedAt: &older}, "{}")
	if err != nil {
		t.Fatal(err)
	}
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "newer", MediaKind: post.KindVideo, PostedAt: &newer}, "{}")
	if err != nil {
		t.Fatal(err)
	}

	posts, err := postRepo.GetPosts("natgeo", 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(posts) != 3 {
		t.Fatalf("Expected 3 posts, got %d", len(posts))
	}

	// Dated posts newest first, undated posts last
	expected := []string{"newer", "older", "undated"}
	for i, id := range expected {
		if posts[i].Canonical.ID != id {
			t.Errorf("Expected post '%s' at position %d, got '%s'", id, i, posts[i].Canonical.ID)
		}
	}

	if posts[2].Canonical.PostedAt != nil {
		t.Errorf("Expected last post to be undated, got %v", posts[2].Canonical.PostedAt)
	}
}

func TestPostRepositoryGetAllPostsOrdering(t *testing.T) {
	db := newTestDB(t)
	sourceRepo := NewSourceRepository(db)
	postRepo := NewPostRepository(db)

	err := sourceRepo.UpsertSource("natgeo", "https://www.instagram.com/natgeo/")
	if err != nil {
		t.Fatal(err)
	}

	dated := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

	err = postRepo.UpsertPost("natgeo", post.Post{ID: "undated", MediaKind: post.KindText}, `{"id": "undated"}`)
	if err != nil {
		t.Fatal(err)
	}
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "dated", MediaKind: post.KindImage, PostedAt: &dated}, `{"id": "dated"}`)
	if err != nil {
		t.Fatal(err)
	}

	posts, err := postRepo.GetAllPosts("natgeo")
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}
	if posts[0].Canonical.ID != "dated" || posts[1].Canonical.ID != "undated" {
		t.Errorf("Expected order [dated undated], got [%s %s]", posts[0].Canonical.ID, posts[1].Canonical.ID)
	}

	// Raw record export follows the same order
	records, err := postRepo.GetRawRecords("natgeo")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 raw records, got %d", len(records))
	}
	first, ok := records[0].(map[string]any)
	if !ok || first["id"] != "dated" {
		t.Errorf("Expected first raw record 'dated', got %v", records[0])
	}
}

func TestPostRepositoryUpsertRefreshesInPlace(t *testing.T) {
	db := newTestDB(t)
	sourceRepo := NewSourceRepository(db)
	postRepo := NewPostRepository(db)

	err := sourceRepo.UpsertSource("natgeo", "https://www.instagram.com/natgeo/")
	if err != nil {
		t.Fatal(err)
	}

	stamp := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "p1", MediaKind: post.KindImage, PostedAt: &stamp, Likes: 5}, `{"id": "p1"}`)
	if err != nil {
		t.Fatal(err)
	}

	// Re-scrape of the same post id refreshes counters instead of duplicating
	err = postRepo.UpsertPost("natgeo", post.Post{ID: "p1", MediaKind: post.KindImage, PostedAt: &stamp, Likes: 9}, `{"id": "p1", "likesCount": 9}`)
	if err != nil {
		t.Fatal(err)
	}

	count, err := postRepo.GetPostCount("natgeo")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 post after re-upsert, got %d", count)
	}

	posts, err := postRepo.GetPosts("natgeo", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(posts))
	}
	if posts[0].Canonical.Likes != 9 {
		t.Errorf("Expected refreshed likes 9, got %d", posts[0].Canonical.Likes)
	}
}
