package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Hit is the occurrence count of the query in one file.
type Hit struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// SearchRequest is the body of a worker's POST /search.
type SearchRequest struct {
	Query string   `json:"q"`
	Files []string `json:"files"`
}

// SearchResponse is returned by both the worker and the coordinator.
// Hits is never nil so it always encodes as a JSON array.
type SearchResponse struct {
	Hits      []Hit `json:"hits"`
	TotalHits int   `json:"total_hits"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ScanStats are cumulative worker counters since process start.
type ScanStats struct {
	Requests        uint64 `json:"requests"`
	FilesScanned    uint64 `json:"files_scanned"`
	FilesUnreadable uint64 `json:"files_unreadable"`
	Hits            uint64 `json:"hits"`
}

// WorkerInfo is served by a worker's GET /info.
type WorkerInfo struct {
	Algorithm string    `json:"algorithm"`
	Threads   int       `json:"threads"`
	Stats     ScanStats `json:"stats"`
}

// Client performs JSON calls between coordinator and workers. Deadlines come
// from the caller's context; Timeout on the underlying http.Client is only a
// last-resort bound.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a Client whose transport gives up after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Search posts req to the worker at baseURL and decodes its response.
func (c *Client) Search(ctx context.Context, baseURL string, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	if err := c.PostJSON(ctx, JoinURL(baseURL, "/search"), req, &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// Info fetches a worker's GET /info.
func (c *Client) Info(ctx context.Context, baseURL string) (WorkerInfo, error) {
	var out WorkerInfo
	if err := c.GetJSON(ctx, JoinURL(baseURL, "/info"), &out); err != nil {
		return WorkerInfo{}, err
	}
	return out, nil
}

func (c *Client) PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d%s", req.URL, resp.StatusCode, errorDetail(resp.Body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorDetail extracts the message of an ErrorResponse body, if any.
func errorDetail(body io.Reader) string {
	var e ErrorResponse
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&e); err != nil || e.Error == "" {
		return ""
	}
	return ": " + e.Error
}

// JoinURL appends path to base without doubling the slash.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
