// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the single persistent WebSocket to the data endpoint
//   - Tracks an explicit connection state machine (Closed is terminal)
//   - Runs a heartbeat loop with ping-timeout detection
//   - Reconnects with capped exponential backoff
//   - Notifies registered observers of state changes outside its lock
package connection
