// Package session supervises the upstream streaming session lifecycle:
// authenticate, resolve the account, open and log in to the streamer, bind
// event handlers, run the receive loop, and reconnect when the session
// drops.
//
// Reconnection is a fixed-interval poll with no backoff: every cycle checks
// whether a live session exists and runs the full connect sequence if not.
// The interval is the sole throttle.
//
// Handlers are bound freshly on every successful connect, and the
// subscription manager's tracked sets are not replayed upstream, so
// subscriptions do not survive a reconnect. Consumers detect the reconnect
// through status polling and reissue their subscribe commands.
package session
