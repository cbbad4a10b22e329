// Package protocol implements the TradingView wire codec.
//
// The codec:
//   - Frames outgoing payloads as ~m~<len>~m~<payload>
//   - Encodes commands as compact {"m":...,"p":[...]} JSON
//   - Parses the "s":[...] series payload into Bar records
//   - Generates quote/chart session identifiers
//
// All functions are pure; no state, no I/O.
package protocol
