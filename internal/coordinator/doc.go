// Package coordinator implements the query side of grepmesh: it splits the
// corpus across a fixed set of workers, fans a query out to them and merges
// what comes back into one ranked answer.
//
// # Overview
//
// A query flows through four stages:
//
//	GET /search?q=needle
//	        │
//	        ▼
//	  ┌───────────┐   files    ┌────────────┐  partitions  ┌────────────┐
//	  │  Service  │──────────▶│ Partition  │─────────────▶│ Dispatcher │
//	  └───────────┘            └────────────┘              └─────┬──────┘
//	        ▲                                                     │ POST /search
//	        │ Result                                    ┌─────────┼─────────┐
//	  ┌───────────┐          hits                       ▼         ▼         ▼
//	  │ Aggregate │◀──────────────────────────────── worker-0  worker-1  worker-2
//	  └───────────┘
//
// # Partitioning
//
// Partition either deals files round robin into exactly one list per worker
// (the default) or cuts them into fixed-size batches. Both cover the corpus
// exactly once. Empty lists, which appear when there are more workers than
// files, are never sent.
//
// # Dispatch
//
// The Dispatcher picks endpoints from an EndpointPool whose round-robin
// cursor is shared by every request. A process-wide semaphore caps the calls
// in flight and each call carries its own timeout. The first failed call
// cancels the rest of its query and fails it with a *DispatchError; no
// partial result is ever returned and nothing is retried.
//
// # Aggregation
//
// Aggregate sums counts per file and orders by count descending, then file
// name ascending, so the same hits always produce the same response.
//
// # Health
//
// HealthMonitor probes each worker's /info on an interval and reports the
// outcome on GET /workers. It does not take workers out of rotation.
package coordinator
