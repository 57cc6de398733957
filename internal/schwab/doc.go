// Package schwab implements the upstream quote provider client: OAuth
// token handling, the REST calls needed to bootstrap a streaming session
// (account numbers, streamer connection info), and the streamer WebSocket
// session itself with subscribe/add/unsubscribe commands and per-service
// event handler dispatch.
package schwab
