package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castpost/castpost/internal/core"
)

func channelWithURL(url string) core.Channel {
	return core.Channel{Handle: url, Name: "test channel"}
}

func TestFeedURLMapping(t *testing.T) {
	cases := []struct {
		handle string
		want   string
	}{
		{"UCabc123", "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123"},
		{"PLxyz", "https://www.youtube.com/feeds/videos.xml?playlist_id=PLxyz"},
		{"UUabc123", "https://www.youtube.com/feeds/videos.xml?playlist_id=UUabc123"},
		{"@somecreator", "https://www.youtube.com/feeds/videos.xml?user=somecreator"},
		{"legacyname", "https://www.youtube.com/feeds/videos.xml?user=legacyname"},
		{"https://example.com/custom.xml", "https://example.com/custom.xml"},
	}
	for _, tc := range cases {
		got, err := FeedURL(tc.handle)
		if err != nil {
			t.Fatalf("FeedURL(%q) failed: %v", tc.handle, err)
		}
		if got != tc.want {
			t.Errorf("FeedURL(%q) = %q, want %q", tc.handle, got, tc.want)
		}
	}
}

func TestFeedURLRequiresHandle(t *testing.T) {
	if _, err := FeedURL("  "); err == nil {
		t.Fatalf("expected error for empty handle")
	}
}

func TestPlaylistIDMapping(t *testing.T) {
	cases := []struct {
		handle string
		want   string
	}{
		{"PLxyz", "PLxyz"},
		{"UUabc", "UUabc"},
		{"UCabc", "UUabc"},
		{"https://www.youtube.com/playlist?list=PLdef&index=1", "PLdef"},
		{"@handleonly", ""},
	}
	for _, tc := range cases {
		if got := PlaylistID(tc.handle); got != tc.want {
			t.Errorf("PlaylistID(%q) = %q, want %q", tc.handle, got, tc.want)
		}
	}
}

const uploadsFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <title>Uploads</title>
  <entry>
    <id>yt:video:vid-1</id>
    <yt:videoId>vid-1</yt:videoId>
    <title>Episode One</title>
  </entry>
  <entry>
    <id>yt:video:vid-2</id>
    <yt:videoId>vid-2</yt:videoId>
    <title>Episode Two</title>
  </entry>
</feed>`

func TestFeedListerParsesUploadsFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(uploadsFeed))
	}))
	defer server.Close()

	lister := NewFeedLister(5*time.Second, "castpost-test/0.1", 0)
	items, err := lister.List(context.Background(), channelWithURL(server.URL))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "vid-1" || items[0].Title != "Episode One" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
}

func TestFeedListerHonorsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(uploadsFeed))
	}))
	defer server.Close()

	lister := NewFeedLister(5*time.Second, "castpost-test/0.1", 1)
	items, err := lister.List(context.Background(), channelWithURL(server.URL))
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected limit of 1 item, got %d", len(items))
	}
}
