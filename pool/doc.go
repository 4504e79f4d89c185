// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// NUMA-segmented byte buffer pooling for I/O on the request/response path
// (HTTP/1.1 bodies, HTTP/2 DATA frames, WebSocket frame payloads) plus a
// small generic object pool (SyncPool) for scratch allocations; nothing on
// the request path uses SyncPool (middleware contexts are allocated
// directly). Pools are keyed by NUMA node so buffers acquired by a worker
// pinned to a node are, on a best-effort basis, reused by workers on that
// same node.
package pool
