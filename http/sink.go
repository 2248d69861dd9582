package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/fwojciec/newsgrab"
)

// Sink API paths relative to the base URL.
const (
	checkPath  = "/api/v1/news-posts/check"
	postPath   = "/api/v1/news-posts"
	imagesPath = "/api/v1/images"
)

// Ensure SinkClient implements newsgrab.Sink and newsgrab.ImageStore.
var (
	_ newsgrab.Sink       = (*SinkClient)(nil)
	_ newsgrab.ImageStore = (*SinkClient)(nil)
)

// SinkClient talks to the remote article store.
type SinkClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// SinkOption configures a SinkClient.
type SinkOption func(*SinkClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) SinkOption {
	return func(s *SinkClient) {
		s.client = c
	}
}

// WithSinkTimeout bounds every request to the store.
func WithSinkTimeout(d time.Duration) SinkOption {
	return func(s *SinkClient) {
		s.client = &http.Client{Timeout: d}
	}
}

// NewSinkClient creates a client for the store at baseURL. A non-empty
// apiKey is sent as the x-api-key header.
func NewSinkClient(baseURL, apiKey string, opts ...SinkOption) *SinkClient {
	s := &SinkClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether the store already holds an article with sourceURL.
func (s *SinkClient) Exists(ctx context.Context, sourceURL string) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := s.postJSON(ctx, checkPath, map[string]string{"sourceUrl": sourceURL}, &out); err != nil {
		return false, newsgrab.Errorf(newsgrab.EEXISTS, "checking %s: %v", sourceURL, err)
	}
	return out.Exists, nil
}

// PostArticle submits the article and returns the id the store assigned.
func (s *SinkClient) PostArticle(ctx context.Context, article *newsgrab.Article) (*newsgrab.PostResult, error) {
	var out struct {
		ID json.RawMessage `json:"id"`
	}
	if err := s.postJSON(ctx, postPath, article, &out); err != nil {
		return nil, newsgrab.Errorf(newsgrab.ESUBMIT, "posting %s: %v", article.SourceURL, err)
	}
	return &newsgrab.PostResult{ID: rawID(out.ID)}, nil
}

// UploadImage sends data as the multipart "file" field and returns the
// hosted URL.
func (s *SinkClient) UploadImage(ctx context.Context, data []byte, filename, mimeType string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "encoding %s: %v", filename, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "encoding %s: %v", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "encoding %s: %v", filename, err)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := s.do(ctx, imagesPath, mw.FormDataContentType(), &body, &out); err != nil {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "uploading %s: %v", filename, err)
	}
	if out.URL == "" {
		return "", newsgrab.Errorf(newsgrab.EUPLOAD, "uploading %s: response has no url", filename)
	}
	return out.URL, nil
}

func (s *SinkClient) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return s.do(ctx, path, "application/json", bytes.NewReader(body), out)
}

func (s *SinkClient) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// rawID renders a JSON id that may be a string or a number.
func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
