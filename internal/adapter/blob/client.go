package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Strob0t/interviewlab/internal/resilience"
)

const (
	apiVersion = "7"
	pageLimit  = 1000
)

// Object describes one stored blob as reported by the API.
type Object struct {
	URL        string    `json:"url"`
	Pathname   string    `json:"pathname"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type listResponse struct {
	Blobs   []Object `json:"blobs"`
	Cursor  string   `json:"cursor"`
	HasMore bool     `json:"hasMore"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("blob API error %d: %s", e.Code, e.Body)
}

// IsMissing reports whether err is an upstream 404.
func IsMissing(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to a Vercel-Blob-compatible REST API: PUT <api>/<pathname>
// stores, GET <api>?prefix= lists, POST <api>/delete removes, and objects are
// read from their public URL.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a blob API client.
func NewClient(apiURL, token string, timeout time.Duration) *Client {
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Put stores data at pathname, overwriting any existing object.
func (c *Client) Put(ctx context.Context, pathname string, data []byte) (*Object, error) {
	headers := map[string]string{
		"x-add-random-suffix": "0",
		"x-allow-overwrite":   "1",
		"x-content-type":      "application/json",
	}
	body, err := c.doRequest(ctx, http.MethodPut, c.apiURL+"/"+pathname, data, headers, true)
	if err != nil {
		return nil, err
	}
	var obj Object
	if err := sonic.ConfigStd.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode put response: %w", err)
	}
	return &obj, nil
}

// List returns every object whose pathname starts with prefix, following
// pagination cursors.
func (c *Client) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	cursor := ""
	for {
		q := url.Values{}
		q.Set("prefix", prefix)
		q.Set("limit", fmt.Sprint(pageLimit))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		body, err := c.doRequest(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil, nil, true)
		if err != nil {
			return nil, err
		}
		var page listResponse
		if err := sonic.ConfigStd.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}
		out = append(out, page.Blobs...)

		if !page.HasMore || page.Cursor == "" {
			return out, nil
		}
		cursor = page.Cursor
	}
}

// Delete removes the objects at the given URLs.
func (c *Client) Delete(ctx context.Context, urls []string) error {
	payload, err := sonic.ConfigStd.Marshal(map[string][]string{"urls": urls})
	if err != nil {
		return fmt.Errorf("encode delete request: %w", err)
	}
	_, err = c.doRequest(ctx, http.MethodPost, c.apiURL+"/delete", payload, nil, true)
	return err
}

// Fetch reads an object from its public URL. The API token is not sent.
func (c *Client) Fetch(ctx context.Context, objectURL string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, objectURL, nil, nil, false)
}

func (c *Client) doRequest(ctx context.Context, method, target string, body []byte, headers map[string]string, auth bool) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		if auth {
			req.Header.Set("Authorization", "Bearer "+c.token)
			req.Header.Set("x-api-version", apiVersion)
		}
		if body != nil && method != http.MethodPut {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Do(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}
