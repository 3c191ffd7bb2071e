package scraper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientEnabled(t *testing.T) {
	client := NewClient(&http.Client{}, "", "", "test-agent")
	if client.Enabled() {
		t.Error("Expected client without endpoint to be disabled")
	}

	client = NewClient(&http.Client{}, "https://api.example.com/run-sync", "secret", "test-agent")
	if !client.Enabled() {
		t.Error("Expected client with endpoint to be enabled")
	}
}

func TestClientFetchPosts(t *testing.T) {
	var gotInput map[string]any
	var gotToken, gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("token")
		gotUserAgent = r.Header.Get("User-Agent")

		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotInput); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id": "p1", "type": "Image"}, {"id": "p2", "type": "Video"}]`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "secret", "test-agent")

	records, err := client.FetchPosts(context.Background(), "https://www.instagram.com/natgeo/", 25)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 {
		t.Errorf("Expected 2 records, got %d", len(records))
	}
	if gotToken != "secret" {
		t.Errorf("Expected token 'secret', got '%s'", gotToken)
	}
	if gotUserAgent != "test-agent" {
		t.Errorf("Expected user agent 'test-agent', got '%s'", gotUserAgent)
	}

	urls, ok := gotInput["directUrls"].([]any)
	if !ok || len(urls) != 1 || urls[0] != "https://www.instagram.com/natgeo/" {
		t.Errorf("Unexpected directUrls in actor input: %v", gotInput["directUrls"])
	}
	if gotInput["resultsType"] != "posts" {
		t.Errorf("Expected resultsType 'posts', got %v", gotInput["resultsType"])
	}
	if gotInput["resultsLimit"] != float64(25) {
		t.Errorf("Expected resultsLimit 25, got %v", gotInput["resultsLimit"])
	}
}

func TestClientFetchPostsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "bad-token", "test-agent")

	_, err := client.FetchPosts(context.Background(), "https://www.instagram.com/natgeo/", 25)
	if err == nil {
		t.Error("Expected error for HTTP 403 response, got none")
	}
}

func TestClientFetchPostsMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "not an array"}`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "", "test-agent")

	_, err := client.FetchPosts(context.Background(), "https://www.instagram.com/natgeo/", 25)
	if err == nil {
		t.Error("Expected error for non-array response, got none")
	}
}

func TestClientFetchPostsContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "", "test-agent")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchPosts(ctx, "https://www.instagram.com/natgeo/", 25)
	if err == nil {
		t.Error("Expected error for cancelled context, got none")
	}
}
