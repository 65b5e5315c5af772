package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/five82/inkreader/internal/pager"
)

// Fetcher pulls one page artifact by index.
// This interface is implemented by *Client and can be used for testing.
type Fetcher interface {
	Fetch(ctx context.Context, index int) (pager.Artifact, error)
}

// Ensure Client implements Fetcher at compile time.
var _ Fetcher = (*Client)(nil)

// ErrEmptyPage reports a response without image content.
var ErrEmptyPage = errors.New("server returned no page content")

// Client talks to the page server's HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	deviceID  string
	maxBytes  int64
}

const (
	defaultServer    = "127.0.0.1:8000"
	defaultUserAgent = "inkreader/0.1"
	requestTimeout   = 15 * time.Second
	maxPageBytes     = 16 << 20
	imagePath        = "/api/img"
)

// NewClient builds a Client for the server at base (host:port or URL) that
// identifies itself as deviceID.
func NewClient(base, deviceID string) (*Client, error) {
	u, err := parseBaseURL(base)
	if err != nil {
		return nil, err
	}
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id required")
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
		deviceID:  deviceID,
		maxBytes:  maxPageBytes,
	}, nil
}

// Fetch downloads page index. Every failure is a pager network error.
func (c *Client) Fetch(ctx context.Context, index int) (pager.Artifact, error) {
	op := fmt.Sprintf("fetch page %d", index)
	if c == nil {
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("client is nil"))
	}
	if index < 0 {
		return pager.Artifact{}, pager.NetworkError(op, pager.ErrOutOfRange)
	}

	values := url.Values{}
	values.Set("client", c.deviceID)
	values.Set("page_num", strconv.Itoa(index))
	rel := &url.URL{Path: imagePath, RawQuery: values.Encode()}
	reqURL := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("execute request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > c.maxBytes {
		return pager.Artifact{}, pager.NetworkError(op, fmt.Errorf("page exceeds %d bytes", c.maxBytes))
	}
	if len(body) == 0 {
		return pager.Artifact{}, pager.NetworkError(op, ErrEmptyPage)
	}
	return pager.NewArtifact(body), nil
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultServer
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", base, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server url %q: missing host", base)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
