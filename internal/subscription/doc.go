// Package subscription owns the set of instrument symbols currently
// subscribed upstream. All mutations go through the Manager: it diffs the
// requested symbols against the tracked sets, applies the delta upstream,
// and only then updates its state, so an upstream failure never leaves the
// sets out of step with the live subscription.
package subscription
