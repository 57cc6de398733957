// Package model defines shared data types used across the relay.
//
// Conventions:
//   - Quote fields are pointers with omitempty tags: a field absent in the
//     raw upstream event is omitted from the output JSON, never null
//   - Timestamps: int64 milliseconds since Unix epoch (upstream convention)
//   - Expiry dates: string "YYYY-MM-DD"
package model
