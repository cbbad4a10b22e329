// Package fetch implements one-shot historical bar retrieval.
//
// A fetch serializes the chart/quote command sequence through the shared
// connection, reads frames until the series-completed marker, and parses
// the embedded bar payload. All fetches on one client are mutually
// exclusive so request/response pairs on the socket never interleave.
package fetch
