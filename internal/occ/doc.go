// Package occ converts between portfolio positions and OCC option symbols
// used for streamer subscription requests.
//
// OCC format: 6-character space-padded ticker + YYMMDD expiry + C/P flag +
// 8-digit strike scaled by 1000. Example:
//
//	AAPL  260221C00200000 = AAPL Feb 21 2026 $200 Call
package occ
