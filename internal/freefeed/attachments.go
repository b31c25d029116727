package freefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"freefeed-mcp/internal/feed"
)

// UploadAttachment uploads raw bytes as a named file and returns the
// attachment payload.
func (c *Client) UploadAttachment(ctx context.Context, filename string, data []byte) (feed.Payload, error) {
	if filename == "" {
		filename = "attachment"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("building upload: %v", err)}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("building upload: %v", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("building upload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("attachments"), &body)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.authToken != "" {
		req.Header.Set(authTokenHeader, c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("attachment upload error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "attachment upload failed"}
	}

	var result feed.Payload
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("decoding upload response: %v", err)}
	}

	c.logger.Info("Uploaded attachment", "filename", filename)
	return result, nil
}

// UploadAttachmentFile reads a local file, confined to the configured upload
// directory, and uploads it.
func (c *Client) UploadAttachmentFile(ctx context.Context, path string) (feed.Payload, error) {
	resolved, err := confinePath(c.uploadDir, path)
	if err != nil {
		return nil, &APIError{Message: "invalid file_path; must be within upload directory"}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("file not found: %s", path)}
	}

	return c.UploadAttachment(ctx, filepath.Base(path), data)
}

// ExtractAttachmentID pulls the attachment id out of an upload response,
// tolerating the single-object and list shapes.
func ExtractAttachmentID(result feed.Payload) string {
	switch att := result["attachments"].(type) {
	case map[string]any:
		id, _ := att["id"].(string)
		return id
	case []any:
		if len(att) > 0 {
			if first, ok := att[0].(map[string]any); ok {
				id, _ := first["id"].(string)
				return id
			}
		}
		return ""
	}
	id, _ := result["id"].(string)
	return id
}

// AttachmentURL derives a download URL from an attachment object. Size is
// "original", "thumbnail" or "thumbnail2"; missing variants fall back to the
// id-based canonical URL.
func (c *Client) AttachmentURL(att map[string]any, size string) string {
	if u, ok := att["url"].(string); ok && u != "" && (size == "original" || size == "") {
		return u
	}
	switch size {
	case "thumbnail":
		if u, ok := att["thumbnailUrl"].(string); ok && u != "" {
			return u
		}
	case "thumbnail2":
		if u, ok := att["thumbnail2Url"].(string); ok && u != "" {
			return u
		}
	}
	if u, ok := att["url"].(string); ok && u != "" {
		return u
	}
	if id, ok := att["id"].(string); ok && id != "" {
		return fmt.Sprintf("%s/attachments/%s", c.baseURL, id)
	}
	return ""
}

// AttachmentPreviewURL asks the API for the real binary location of an
// attachment whose direct URL serves an HTML wrapper page.
func (c *Client) AttachmentPreviewURL(ctx context.Context, attachmentID string) (string, error) {
	result, err := c.doJSON(ctx, http.MethodGet, "attachments/"+url.PathEscape(attachmentID)+"/original", nil, nil)
	if err != nil {
		return "", err
	}
	previewURL, _ := result["url"].(string)
	return previewURL, nil
}

// Head issues a raw HEAD request with the auth token attached. The response
// is returned regardless of status; callers interpret it.
func (c *Client) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.raw(ctx, http.MethodHead, rawURL)
}

// Get issues a raw GET request with the auth token attached.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.raw(ctx, http.MethodGet, rawURL)
}

func (c *Client) raw(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.authToken != "" {
		req.Header.Set(authTokenHeader, c.authToken)
	}
	c.logger.Debug("HTTP request", "method", method, "url", rawURL)
	return c.httpClient.Do(req)
}

// DownloadAttachment fetches an allow-listed attachment URL and returns its
// bytes.
func (c *Client) DownloadAttachment(ctx context.Context, rawURL string) ([]byte, error) {
	if !c.isAllowedAttachmentURL(rawURL) {
		return nil, &APIError{Message: "attachment URL is not allowed"}
	}

	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("attachment download error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "attachment download failed"}
	}

	return io.ReadAll(resp.Body)
}

// DownloadAttachmentToFile fetches an attachment and writes it under the
// configured download directory, returning the resolved path.
func (c *Client) DownloadAttachmentToFile(ctx context.Context, rawURL, savePath string) (string, error) {
	resolved, err := confinePath(c.downloadDir, savePath)
	if err != nil {
		return "", &APIError{Message: "invalid save_path; must be within download directory"}
	}

	data, err := c.DownloadAttachment(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", &APIError{Message: fmt.Sprintf("creating download directory: %v", err)}
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return "", &APIError{Message: fmt.Sprintf("writing download: %v", err)}
	}

	c.logger.Info("Downloaded attachment", "path", resolved)
	return resolved, nil
}

func (c *Client) isAllowedAttachmentURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	if parsed.Host != base.Host && parsed.Host != MediaHost {
		return false
	}
	return strings.Contains(parsed.Path, "/attachments/")
}

// MimeTypeByName guesses a MIME type from a filename, defaulting to
// application/octet-stream.
func MimeTypeByName(filename string) string {
	if mimeType := mime.TypeByExtension(filepath.Ext(filename)); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

// confinePath resolves candidate against baseDir and rejects anything that
// escapes it.
func confinePath(baseDir, candidate string) (string, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	resolved := candidate
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(base, resolved)
	}
	resolved = filepath.Clean(resolved)

	rel, err := filepath.Rel(base, resolved)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %q", candidate, baseDir)
	}
	return resolved, nil
}
