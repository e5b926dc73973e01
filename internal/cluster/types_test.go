package cluster

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSearchResponseJSON tests the field names of the search payloads
func TestSearchResponseJSON(t *testing.T) {
	resp := SearchResponse{
		Hits:      []Hit{{File: "f1.txt", Count: 2}},
		TotalHits: 2,
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":[{"file":"f1.txt","count":2}],"total_hits":2}`, string(data))

	empty, err := json.Marshal(SearchResponse{Hits: []Hit{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":[],"total_hits":0}`, string(empty))
}

// TestSearchRequestJSON tests that the worker request uses "q" and "files"
func TestSearchRequestJSON(t *testing.T) {
	var req SearchRequest
	require.NoError(t, json.Unmarshal([]byte(`{"q":"needle","files":["a","b"]}`), &req))
	assert.Equal(t, "needle", req.Query)
	assert.Equal(t, []string{"a", "b"}, req.Files)
}

// TestClientPostJSON tests PostJSON with various server behaviours
func TestClientPostJSON(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse int
		serverBody     string
		requestBody    interface{}
		responseBody   interface{}
		expectError    bool
		errorContains  string
		contextTimeout bool
	}{
		{
			name:           "successful POST with response",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			responseBody:   &map[string]string{},
		},
		{
			name:           "successful POST without response body",
			serverResponse: http.StatusNoContent,
			requestBody:    map[string]string{"test": "data"},
		},
		{
			name:           "server error carries worker message",
			serverResponse: http.StatusInternalServerError,
			serverBody:     `{"error":"disk on fire"}`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			errorContains:  "500: disk on fire",
		},
		{
			name:           "bad request without json body",
			serverResponse: http.StatusBadRequest,
			serverBody:     `plain text`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			errorContains:  ": 400",
		},
		{
			name:           "context timeout",
			serverResponse: http.StatusOK,
			serverBody:     `{"status":"ok"}`,
			requestBody:    map[string]string{"test": "data"},
			expectError:    true,
			contextTimeout: true,
		},
		{
			name:        "unmarshalable request body",
			requestBody: make(chan int),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				if tt.contextTimeout {
					time.Sleep(100 * time.Millisecond)
				}

				w.WriteHeader(tt.serverResponse)
				if tt.serverBody != "" {
					w.Write([]byte(tt.serverBody))
				}
			}))
			defer server.Close()

			ctx := context.Background()
			if tt.contextTimeout {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Millisecond)
				defer cancel()
			}

			client := NewClient(5 * time.Second)
			err := client.PostJSON(ctx, server.URL, tt.requestBody, tt.responseBody)

			if tt.expectError {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				return
			}
			require.NoError(t, err)
			if tt.responseBody != nil {
				respMap := tt.responseBody.(*map[string]string)
				assert.Equal(t, "ok", (*respMap)["status"])
			}
		})
	}
}

// TestClientGetJSON tests GetJSON decoding and error statuses
func TestClientGetJSON(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse int
		serverBody     string
		expectError    bool
	}{
		{"successful GET", http.StatusOK, `{"data":"test","value":123}`, false},
		{"not found", http.StatusNotFound, `{"error":"not found"}`, true},
		{"invalid JSON response", http.StatusOK, `{invalid json}`, true},
		{"redirect response", http.StatusMovedPermanently, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.serverResponse)
				if tt.serverBody != "" {
					w.Write([]byte(tt.serverBody))
				}
			}))
			defer server.Close()

			var out map[string]interface{}
			err := NewClient(5*time.Second).GetJSON(context.Background(), server.URL, &out)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "test", out["data"])
			assert.Equal(t, float64(123), out["value"])
		})
	}
}

// TestClientInvalidURL tests both helpers against unusable targets
func TestClientInvalidURL(t *testing.T) {
	client := NewClient(time.Second)
	ctx := context.Background()

	assert.Error(t, client.PostJSON(ctx, "://invalid-url", map[string]string{}, nil))
	assert.Error(t, client.PostJSON(ctx, "http://localhost:99999", map[string]string{}, nil))

	var out map[string]interface{}
	assert.Error(t, client.GetJSON(ctx, "://invalid-url", &out))
	assert.Error(t, client.GetJSON(ctx, "http://localhost:99999", &out))
}

// TestClientSearch tests the worker search call end to end
func TestClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "needle", req.Query)
		assert.Equal(t, []string{"f1.txt", "f2.txt"}, req.Files)

		json.NewEncoder(w).Encode(SearchResponse{
			Hits:      []Hit{{File: "f1.txt", Count: 2}},
			TotalHits: 2,
		})
	}))
	defer server.Close()

	resp, err := NewClient(time.Second).Search(context.Background(), server.URL+"/", SearchRequest{
		Query: "needle",
		Files: []string{"f1.txt", "f2.txt"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalHits)
	assert.Equal(t, []Hit{{File: "f1.txt", Count: 2}}, resp.Hits)
}

// TestClientInfo tests the worker info call
func TestClientInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/info", r.URL.Path)
		w.Write([]byte(`{"algorithm":"kmp","threads":4,"stats":{"requests":3,"files_scanned":9}}`))
	}))
	defer server.Close()

	info, err := NewClient(time.Second).Info(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "kmp", info.Algorithm)
	assert.Equal(t, 4, info.Threads)
	assert.Equal(t, uint64(3), info.Stats.Requests)
	assert.Equal(t, uint64(9), info.Stats.FilesScanned)
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://w:8000/search", JoinURL("http://w:8000", "/search"))
	assert.Equal(t, "http://w:8000/search", JoinURL("http://w:8000/", "/search"))
	assert.True(t, strings.HasSuffix(JoinURL("http://w:8000//", "/info"), ":8000/info"))
}
