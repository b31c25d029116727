package freefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"freefeed-mcp/internal/feed"
	"freefeed-mcp/internal/logging"
)

func TestConfinePath(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name      string
		candidate string
		wantErr   bool
	}{
		{"plain name", "photo.jpg", false},
		{"subdirectory", "album/photo.jpg", false},
		{"dot segments resolving inside", "album/../photo.jpg", false},
		{"parent escape", "../photo.jpg", true},
		{"deep escape", "album/../../photo.jpg", true},
		{"absolute outside", filepath.Join(os.TempDir(), "elsewhere", "x"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := confinePath(base, tt.candidate)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected %q to be rejected, got %q", tt.candidate, resolved)
				}
				return
			}
			if err != nil {
				t.Fatalf("confinePath(%q) failed: %v", tt.candidate, err)
			}
			if !strings.HasPrefix(resolved, base) {
				t.Errorf("Resolved path %q is outside %q", resolved, base)
			}
		})
	}
}

func TestExtractAttachmentID(t *testing.T) {
	tests := []struct {
		name    string
		payload feed.Payload
		want    string
	}{
		{"object shape", feed.Payload{"attachments": map[string]any{"id": "a1"}}, "a1"},
		{"list shape", feed.Payload{"attachments": []any{map[string]any{"id": "a2"}}}, "a2"},
		{"bare id", feed.Payload{"id": "a3"}, "a3"},
		{"empty list", feed.Payload{"attachments": []any{}}, ""},
		{"nothing", feed.Payload{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAttachmentID(tt.payload); got != tt.want {
				t.Errorf("ExtractAttachmentID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttachmentURL(t *testing.T) {
	client := newTestClient("https://freefeed.net", Options{})

	tests := []struct {
		name string
		att  map[string]any
		size string
		want string
	}{
		{
			"original prefers url",
			map[string]any{"url": "https://media.freefeed.net/attachments/a1.png", "id": "a1"},
			"original",
			"https://media.freefeed.net/attachments/a1.png",
		},
		{
			"thumbnail variant",
			map[string]any{"url": "https://x/a1.png", "thumbnailUrl": "https://x/thumb/a1.png"},
			"thumbnail",
			"https://x/thumb/a1.png",
		},
		{
			"missing thumbnail falls back to url",
			map[string]any{"url": "https://x/a1.png"},
			"thumbnail",
			"https://x/a1.png",
		},
		{
			"id fallback",
			map[string]any{"id": "a1"},
			"original",
			"https://freefeed.net/attachments/a1",
		},
		{
			"nothing usable",
			map[string]any{},
			"original",
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.AttachmentURL(tt.att, tt.size); got != tt.want {
				t.Errorf("AttachmentURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAllowedAttachmentURL(t *testing.T) {
	client := newTestClient("https://freefeed.net", Options{})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://freefeed.net/attachments/a1.png", true},
		{"https://media.freefeed.net/attachments/a1.png", true},
		{"https://evil.example.com/attachments/a1.png", false},
		{"https://freefeed.net/users/alice", false},
		{"file:///etc/passwd", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := client.isAllowedAttachmentURL(tt.url); got != tt.want {
				t.Errorf("isAllowedAttachmentURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestDownloadAttachment_RejectsForeignHost(t *testing.T) {
	client := newTestClient("https://freefeed.net", Options{})

	_, err := client.DownloadAttachment(context.Background(), "https://evil.example.com/attachments/a1.png")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected an APIError for a foreign host, got %v", err)
	}
}

func TestDownloadAttachmentToFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("PNG!"))
	}))
	defer server.Close()

	downloadDir := t.TempDir()
	logger, _ := logging.NewTestLogger()
	client := NewClient(Options{BaseURL: server.URL, DownloadDir: downloadDir, Logger: logger})

	saved, err := client.DownloadAttachmentToFile(context.Background(), server.URL+"/attachments/a1.png", "album/a1.png")
	if err != nil {
		t.Fatalf("DownloadAttachmentToFile failed: %v", err)
	}

	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if string(data) != "PNG!" {
		t.Errorf("Unexpected file content: %q", data)
	}
	if !strings.HasPrefix(saved, downloadDir) {
		t.Errorf("Saved path %q is outside the download directory", saved)
	}
}

func TestDownloadAttachmentToFile_RejectsEscape(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	client := NewClient(Options{BaseURL: "https://freefeed.net", DownloadDir: t.TempDir(), Logger: logger})

	_, err := client.DownloadAttachmentToFile(context.Background(),
		"https://freefeed.net/attachments/a1.png", "../escape.png")
	if err == nil {
		t.Fatal("Expected an escaping save_path to be rejected")
	}
}

func TestUploadAttachment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Expected a multipart request: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Expected a file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "photo.png" {
			t.Errorf("Unexpected filename: %s", header.Filename)
		}
		w.Write([]byte(`{"attachments": {"id": "a1"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, Options{AuthToken: "tok"})

	result, err := client.UploadAttachment(context.Background(), "photo.png", []byte("PNG!"))
	if err != nil {
		t.Fatalf("UploadAttachment failed: %v", err)
	}
	if got := ExtractAttachmentID(result); got != "a1" {
		t.Errorf("Expected attachment id a1, got %q", got)
	}
}

func TestUploadAttachmentFile_RejectsEscape(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	client := NewClient(Options{BaseURL: "https://freefeed.net", UploadDir: t.TempDir(), Logger: logger})

	_, err := client.UploadAttachmentFile(context.Background(), "../secret.txt")
	if err == nil {
		t.Fatal("Expected an escaping file_path to be rejected")
	}
}

func TestMimeTypeByName(t *testing.T) {
	if got := MimeTypeByName("a.png"); got != "image/png" {
		t.Errorf("MimeTypeByName(a.png) = %q", got)
	}
	if got := MimeTypeByName("data.bin.weird"); got != "application/octet-stream" {
		t.Errorf("Expected octet-stream fallback, got %q", got)
	}
}
