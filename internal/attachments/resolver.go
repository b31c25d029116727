// Package attachments resolves attachment URLs to binary content.
//
// Attachment URLs embedded in upstream payloads are unreliable: files move
// between the primary host and the media CDN, and some URLs (videos in
// particular) serve an HTML landing page instead of the binary. The resolver
// validates the URL, tries an ordered list of candidate locations with a
// HEAD probe ahead of each fetch, falls back across hosts on 404, and chases
// the API's preview indirection when a fetch comes back as HTML. All failure
// modes are returned as inspectable values, never as errors, so callers can
// degrade to handing out the URL instead of inline bytes.
package attachments

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"freefeed-mcp/internal/freefeed"
	"freefeed-mcp/internal/logging"
)

// FetchError classifies a failed resolution. The empty value means success.
type FetchError string

const (
	ErrNone         FetchError = ""
	ErrTooLarge     FetchError = "too_large"
	ErrNotFound     FetchError = "not_found"
	ErrHTTP         FetchError = "http_error"
	ErrHTMLResponse FetchError = "html_response"
	ErrInvalidURL   FetchError = "invalid_url"
)

// FetchResult carries either the resolved bytes or a FetchError, plus
// whatever metadata was learned along the way. URL is the candidate that
// produced the result.
type FetchResult struct {
	Data        []byte
	ContentType string
	Size        int64
	URL         string
	Err         FetchError
}

// IsImage reports whether the resolved content is an image.
func (r FetchResult) IsImage() bool {
	return strings.HasPrefix(r.ContentType, "image/")
}

// MediaClient is the slice of the API client the resolver needs: raw
// authenticated HEAD/GET, and the preview-URL lookup.
type MediaClient interface {
	Head(ctx context.Context, rawURL string) (*http.Response, error)
	Get(ctx context.Context, rawURL string) (*http.Response, error)
	AttachmentPreviewURL(ctx context.Context, attachmentID string) (string, error)
}

type Resolver struct {
	client      MediaClient
	primaryHost string
	mediaHost   string
	baseURL     string
	logger      *logging.AppLogger
}

func NewResolver(client MediaClient, baseURL string, logger *logging.AppLogger) *Resolver {
	if logger == nil {
		logger = logging.GetDefault()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	primaryHost := ""
	if parsed, err := url.Parse(baseURL); err == nil {
		primaryHost = parsed.Host
	}
	return &Resolver{
		client:      client,
		primaryHost: primaryHost,
		mediaHost:   freefeed.MediaHost,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// Fetch resolves rawURL to binary content, trying fallback hosts and the
// preview indirection as needed. maxBytes bounds the returned data; content
// known to exceed it is never downloaded.
func (r *Resolver) Fetch(ctx context.Context, rawURL string, maxBytes int64) FetchResult {
	ref, ok := r.parseAttachmentURL(rawURL)
	if !ok {
		return FetchResult{URL: rawURL, Err: ErrInvalidURL}
	}

	for _, candidate := range r.candidates(rawURL, ref) {
		result, next := r.fetchCandidate(ctx, candidate, maxBytes, true)
		if next {
			r.logger.Debug("Attachment candidate missing, trying next", "url", candidate)
			continue
		}
		return result
	}

	return FetchResult{URL: rawURL, Err: ErrNotFound}
}

// attachmentRef is the identifier segment extracted from an attachment URL:
// the file name (id plus optional extension) used to rebuild candidates.
type attachmentRef struct {
	file string
	id   string
}

// parseAttachmentURL validates the URL and extracts the attachment
// identifier. The path must contain an "attachments" segment, optionally
// followed by a "p/<size>" preview prefix, then the id file.
func (r *Resolver) parseAttachmentURL(rawURL string) (attachmentRef, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return attachmentRef{}, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return attachmentRef{}, false
	}
	if parsed.Host != r.primaryHost && parsed.Host != r.mediaHost {
		return attachmentRef{}, false
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment != "attachments" {
			continue
		}
		rest := segments[i+1:]
		if len(rest) >= 3 && rest[0] == "p" {
			rest = rest[2:]
		}
		if len(rest) == 0 || rest[0] == "" {
			return attachmentRef{}, false
		}
		file := rest[0]
		id := strings.TrimSuffix(file, path.Ext(file))
		if id == "" {
			return attachmentRef{}, false
		}
		return attachmentRef{file: file, id: id}, true
	}

	return attachmentRef{}, false
}

// candidates builds the ordered, deduplicated list of URLs to try: the
// original, the identifier rebuilt against the primary host, then against
// the media CDN.
func (r *Resolver) candidates(rawURL string, ref attachmentRef) []string {
	ordered := []string{
		rawURL,
		r.baseURL + "/attachments/" + ref.file,
		"https://" + r.mediaHost + "/attachments/" + ref.file,
	}

	seen := make(map[string]struct{}, len(ordered))
	unique := ordered[:0]
	for _, candidate := range ordered {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		unique = append(unique, candidate)
	}
	return unique
}

// fetchCandidate tries one URL. The second return value is true when the
// candidate 404ed and the caller should advance to the next one; every
// other outcome, success or failure, is final.
func (r *Resolver) fetchCandidate(ctx context.Context, candidate string, maxBytes int64, allowPreview bool) (FetchResult, bool) {
	contentType := ""
	var contentLength int64 = -1

	// Probe failures other than 404 are non-fatal signals; the full fetch
	// still gets its chance.
	if head, err := r.client.Head(ctx, candidate); err == nil {
		io.Copy(io.Discard, head.Body)
		head.Body.Close()
		switch {
		case head.StatusCode == http.StatusNotFound:
			return FetchResult{}, true
		case head.StatusCode < 400:
			contentType = head.Header.Get("Content-Type")
			contentLength = head.ContentLength
		}
	}

	if contentLength > maxBytes {
		return FetchResult{URL: candidate, ContentType: contentType, Size: contentLength, Err: ErrTooLarge}, false
	}

	resp, err := r.client.Get(ctx, candidate)
	if err != nil {
		return FetchResult{URL: candidate, Err: ErrHTTP}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return FetchResult{}, true
	}
	if resp.StatusCode >= 400 {
		// Only a 404 advances to the next candidate; a server that answered
		// with anything else is treated as authoritative.
		return FetchResult{URL: candidate, Err: ErrHTTP}, false
	}

	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return FetchResult{URL: candidate, Err: ErrHTTP}, false
	}
	size := int64(len(data))
	if resp.ContentLength > size {
		size = resp.ContentLength
	}
	if size > maxBytes {
		return FetchResult{URL: candidate, ContentType: contentType, Size: size, Err: ErrTooLarge}, false
	}

	if isHTML(contentType) {
		// Not real media; a video or similar serving its landing page. Ask
		// the API for the underlying binary once.
		if allowPreview {
			if result, ok := r.fetchPreview(ctx, candidate, maxBytes); ok {
				return result, false
			}
		}
		return FetchResult{URL: candidate, ContentType: contentType, Size: size, Err: ErrHTMLResponse}, false
	}

	if contentType == "" {
		contentType = inferContentType(candidate)
	}

	return FetchResult{Data: data, ContentType: contentType, Size: size, URL: candidate}, false
}

// fetchPreview resolves the preview indirection for a candidate that served
// HTML. Returns ok=false when no preview is available or the preview fetch
// failed; the caller then reports the original html_response.
func (r *Resolver) fetchPreview(ctx context.Context, candidate string, maxBytes int64) (FetchResult, bool) {
	ref, ok := r.parseAttachmentURL(candidate)
	if !ok {
		return FetchResult{}, false
	}

	previewURL, err := r.client.AttachmentPreviewURL(ctx, ref.id)
	if err != nil || previewURL == "" {
		if err != nil {
			r.logger.Debug("Preview lookup failed", "attachment", ref.id, "error", err)
		}
		return FetchResult{}, false
	}

	result, next := r.fetchPreviewURL(ctx, previewURL, maxBytes)
	if next || result.Err != ErrNone {
		return FetchResult{}, false
	}
	return result, true
}

// fetchPreviewURL fetches the preview location itself. Preview URLs may
// point at hosts outside the attachment allow-list, so they skip URL
// validation, and they never recurse into another preview lookup.
func (r *Resolver) fetchPreviewURL(ctx context.Context, previewURL string, maxBytes int64) (FetchResult, bool) {
	return r.fetchCandidate(ctx, previewURL, maxBytes, false)
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html"
}

func inferContentType(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return mime.TypeByExtension(path.Ext(parsed.Path))
}
