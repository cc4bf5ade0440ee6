package requestsxml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is the browser User-Agent a Session mocks by default.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/603.3.8 (KHTML, like Gecko) Version/10.1.2 Safari/603.3.8"

// Session issues HTTP requests with cookie persistence and connection
// pooling and attaches a lazily-parsed XML Document to each response. It
// adds no retry or recovery logic: network errors propagate unchanged.
type Session struct {
	client    *http.Client
	userAgent string
}

// NewSession returns a session with a fresh cookie jar and a mocked browser
// User-Agent.
func NewSession() *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		client:    &http.Client{Jar: jar},
		userAgent: DefaultUserAgent,
	}
}

// SetUserAgent overrides the mocked User-Agent. An empty string stops the
// session from setting the header at all.
func (s *Session) SetUserAgent(ua string) {
	s.userAgent = ua
}

// SetTimeout sets the per-request timeout, passed through to the underlying
// client. Zero means no timeout.
func (s *Session) SetTimeout(d time.Duration) {
	s.client.Timeout = d
}

// Client exposes the underlying HTTP client.
func (s *Session) Client() *http.Client {
	return s.client
}

// Get issues a GET request.
func (s *Session) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return s.Do(req)
}

// Head issues a HEAD request.
func (s *Session) Head(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return s.Do(req)
}

// Post issues a POST request with the given body.
func (s *Session) Post(ctx context.Context, url, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return s.Do(req)
}

// PostForm issues a POST request with URL-encoded form data.
func (s *Session) PostForm(ctx context.Context, url string, data url.Values) (*Response, error) {
	return s.Post(ctx, url, "application/x-www-form-urlencoded", strings.NewReader(data.Encode()))
}

// Do sends the request, reads the body in full and wraps the result. The
// wrapped response's Body remains readable.
func (s *Session) Do(req *http.Request) (*Response, error) {
	if s.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return &Response{Response: resp, content: body}, nil
}

// Response is an HTTP response with an XML document view. The document is
// built once, on first access, and named distinctly from the body accessor.
type Response struct {
	*http.Response
	content []byte
	doc     *Document
}

// Content returns the raw response body.
func (r *Response) Content() []byte {
	return r.content
}

// XML returns the body as a queryable Document. Parsing is still deferred
// until the document's first tree-dependent accessor.
func (r *Response) XML() *Document {
	if r.doc == nil {
		r.doc = newResponseDocument(r.content, r.Header.Get("Content-Type"))
	}
	return r.doc
}
