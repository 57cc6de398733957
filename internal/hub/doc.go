// Package hub implements the downstream broadcast hub: a WebSocket server
// that accepts consumer connections, dispatches their subscribe/status
// commands to the subscription manager, and fans normalized events and
// periodic heartbeats out to every connected consumer.
//
// Fan-out is independent per consumer: a send failure drops only the
// failing consumer and never aborts the broadcast to the rest.
package hub
