// Package cluster defines the wire protocol spoken between the grepmesh
// coordinator and its workers, and the JSON client both sides use.
//
// # Topology
//
// The cluster is a fixed hub-and-spoke deployment: one coordinator and a
// static list of worker endpoints given at startup. Workers never register or
// leave; the coordinator only ever talks to the endpoints it was configured
// with.
//
//	               ┌──────────────┐
//	GET /search ──►│ Coordinator  │
//	               │ - Partition  │
//	               │ - Dispatch   │
//	               │ - Aggregate  │
//	               └──────┬───────┘
//	                      │ POST /search {q, files}
//	       ┌──────────────┼──────────────┐
//	 ┌─────▼─────┐  ┌─────▼─────┐  ┌─────▼─────┐
//	 │ Worker 1  │  │ Worker 2  │  │ Worker 3  │
//	 │ scan pool │  │ scan pool │  │ scan pool │
//	 └───────────┘  └───────────┘  └───────────┘
//
// # Messages
//
// Worker search (POST /search):
//
//	request:  {"q": "needle", "files": ["/data/a.txt", "/data/b.txt"]}
//	response: {"hits": [{"file": "/data/a.txt", "count": 2}], "total_hits": 2}
//
// Coordinator search (GET /search?q=needle) returns the same SearchResponse
// shape after merging all partitions. Every failure on either side answers
// with {"error": "<message>"} and a 4xx or 5xx status.
//
// Worker info (GET /info) reports the configured algorithm, the scan pool
// size and cumulative ScanStats. The coordinator's health monitor uses it as
// its liveness probe.
//
// # Client
//
// Client wraps an http.Client. Deadlines are expected on the context passed
// to each call; the coordinator derives one per dispatched partition from its
// configured worker timeout. A non-2xx reply becomes an error that carries
// the status code and, when present, the worker's error message.
package cluster
